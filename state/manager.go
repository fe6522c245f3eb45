package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"alphapoints/core/events"
	"alphapoints/core/types"
	"alphapoints/storage"
)

// Manager provides the KV state surface shared by every native engine:
// JSON-encoded values under keccak-hashed keys, a role table, operator pause
// switches and an event journal. A Manager plays the part of the host VM's
// object store; single-writer semantics are the caller's responsibility, the
// Manager only guards its own bookkeeping.
type Manager struct {
	db storage.Database

	mu          sync.RWMutex
	journal     []*types.Event
	subscribers []events.Emitter
	pauses      map[string]bool
}

// NewManager creates a state manager over the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:     db,
		pauses: make(map[string]bool),
	}
}

var (
	rolePrefix = []byte("role:")

	errEmptyKey = errors.New("kv: key must not be empty")
)

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func roleKey(role string, addr []byte) []byte {
	buf := make([]byte, 0, len(rolePrefix)+len(role)+1+len(addr))
	buf = append(buf, rolePrefix...)
	buf = append(buf, role...)
	buf = append(buf, ':')
	buf = append(buf, addr...)
	return ethcrypto.Keccak256(buf)
}

// KVPut stores the provided value under the supplied key using JSON encoding.
// The key is hashed with keccak256 so arbitrary-length logical keys map onto
// fixed-size storage keys.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return errEmptyKey
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return m.db.Put(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean reports whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, errEmptyKey
	}
	data, err := m.db.Get(kvKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the key if present.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return errEmptyKey
	}
	return m.db.Delete(kvKey(key))
}

// KVAppend appends the provided value to the byte-slice list stored under the
// supplied key. Duplicates are ignored to keep indexes deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	if len(key) == 0 {
		return errEmptyKey
	}
	var list [][]byte
	if _, err := m.KVGet(key, &list); err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return m.KVPut(key, list)
}

// KVGetList retrieves the byte-slice list stored under the provided key. A
// missing key yields an empty list rather than an error.
func (m *Manager) KVGetList(key []byte, out *[][]byte) error {
	if len(key) == 0 {
		return errEmptyKey
	}
	ok, err := m.KVGet(key, out)
	if err != nil {
		return err
	}
	if !ok {
		*out = make([][]byte, 0)
	}
	return nil
}

// GrantRole marks the address as holding the named role.
func (m *Manager) GrantRole(role string, addr []byte) error {
	if role == "" || len(addr) == 0 {
		return fmt.Errorf("role grant requires role and address")
	}
	return m.db.Put(roleKey(role, addr), []byte{1})
}

// RevokeRole removes a previously granted role.
func (m *Manager) RevokeRole(role string, addr []byte) error {
	return m.db.Delete(roleKey(role, addr))
}

// HasRole reports whether the address holds the named role.
func (m *Manager) HasRole(role string, addr []byte) bool {
	ok, err := m.db.Has(roleKey(role, addr))
	return err == nil && ok
}

// SetPaused toggles the operator pause switch for a module.
func (m *Manager) SetPaused(module string, paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses[module] = paused
}

// IsPaused implements common.PauseView.
func (m *Manager) IsPaused(module string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pauses[module]
}

// Subscribe registers an emitter that receives every event appended to the
// journal, in order.
func (m *Manager) Subscribe(sub events.Emitter) {
	if sub == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, sub)
}

// Emit implements events.Emitter: the event lands in the journal and fans out
// to subscribers.
func (m *Manager) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	m.mu.Lock()
	m.journal = append(m.journal, evt.Event().Clone())
	subs := append([]events.Emitter(nil), m.subscribers...)
	m.mu.Unlock()
	for _, sub := range subs {
		sub.Emit(evt)
	}
}

// Events returns a copy of the journal, oldest first.
func (m *Manager) Events() []*types.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Event, 0, len(m.journal))
	for _, evt := range m.journal {
		out = append(out, evt.Clone())
	}
	return out
}
