package state

import (
	"bytes"
	"encoding/json"
	"errors"

	"alphapoints/core/events"
)

// ErrTxnClosed is returned when a committed or aborted transaction is reused.
var ErrTxnClosed = errors.New("state: transaction closed")

// Txn is a write-overlay transaction over a Manager. Reads fall through to the
// underlying state, writes and emitted events buffer until Commit, so a
// multi-object operation either lands whole or not at all: an aborted
// transaction leaves the Manager untouched.
type Txn struct {
	mgr     *Manager
	writes  map[string][]byte
	deletes map[string]bool
	order   []string
	pending []events.Event
	closed  bool
}

// Begin opens a transaction. Transactions are not safe for concurrent use;
// callers serialize access the same way the host serializes writers per
// object.
func (m *Manager) Begin() *Txn {
	return &Txn{
		mgr:     m,
		writes:  make(map[string][]byte),
		deletes: make(map[string]bool),
	}
}

func (t *Txn) record(key string, value []byte) {
	if _, seen := t.writes[key]; !seen && !t.deletes[key] {
		t.order = append(t.order, key)
	}
	delete(t.deletes, key)
	t.writes[key] = value
}

// KVPut buffers a JSON-encoded write.
func (t *Txn) KVPut(key []byte, value interface{}) error {
	if t.closed {
		return ErrTxnClosed
	}
	if len(key) == 0 {
		return errEmptyKey
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	t.record(string(key), encoded)
	return nil
}

// KVGet reads through the overlay, then the underlying manager.
func (t *Txn) KVGet(key []byte, out interface{}) (bool, error) {
	if t.closed {
		return false, ErrTxnClosed
	}
	if len(key) == 0 {
		return false, errEmptyKey
	}
	if t.deletes[string(key)] {
		return false, nil
	}
	if data, ok := t.writes[string(key)]; ok {
		if out == nil {
			return true, nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return false, err
		}
		return true, nil
	}
	return t.mgr.KVGet(key, out)
}

// KVDelete buffers a deletion.
func (t *Txn) KVDelete(key []byte) error {
	if t.closed {
		return ErrTxnClosed
	}
	if len(key) == 0 {
		return errEmptyKey
	}
	if _, seen := t.writes[string(key)]; !seen && !t.deletes[string(key)] {
		t.order = append(t.order, string(key))
	}
	delete(t.writes, string(key))
	t.deletes[string(key)] = true
	return nil
}

// KVAppend appends to the byte-slice list under key inside the overlay.
func (t *Txn) KVAppend(key []byte, value []byte) error {
	if t.closed {
		return ErrTxnClosed
	}
	var list [][]byte
	if _, err := t.KVGet(key, &list); err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return t.KVPut(key, list)
}

// KVGetList mirrors Manager.KVGetList through the overlay.
func (t *Txn) KVGetList(key []byte, out *[][]byte) error {
	ok, err := t.KVGet(key, out)
	if err != nil {
		return err
	}
	if !ok {
		*out = make([][]byte, 0)
	}
	return nil
}

// HasRole delegates to the manager; role grants are not transactional.
func (t *Txn) HasRole(role string, addr []byte) bool {
	return t.mgr.HasRole(role, addr)
}

// IsPaused delegates to the manager.
func (t *Txn) IsPaused(module string) bool {
	return t.mgr.IsPaused(module)
}

// Emit buffers the event; it reaches the journal only on Commit.
func (t *Txn) Emit(evt events.Event) {
	if t.closed || evt == nil {
		return
	}
	t.pending = append(t.pending, evt)
}

// Commit flushes buffered writes and events to the manager in insertion
// order. The transaction is unusable afterwards.
func (t *Txn) Commit() error {
	if t.closed {
		return ErrTxnClosed
	}
	t.closed = true
	// Flush in first-touch order so repeated runs replay identically.
	for _, key := range t.order {
		if t.deletes[key] {
			if err := t.mgr.db.Delete(kvKey([]byte(key))); err != nil {
				return err
			}
			continue
		}
		if data, ok := t.writes[key]; ok {
			if err := t.mgr.db.Put(kvKey([]byte(key)), data); err != nil {
				return err
			}
		}
	}
	for _, evt := range t.pending {
		t.mgr.Emit(evt)
	}
	return nil
}

// Abort discards the transaction.
func (t *Txn) Abort() {
	t.closed = true
	t.writes = nil
	t.deletes = nil
	t.pending = nil
}
