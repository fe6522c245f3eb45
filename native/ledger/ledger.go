package ledger

import (
	"fmt"

	"alphapoints/core/events"
	nativecommon "alphapoints/native/common"
)

const moduleName = "ledger"

type ledgerState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Engine is the point ledger: a monotonic issuance counter and per-user
// balance entries, mutated only through Earn, Spend, Lock and Unlock. The
// engine holds no state of its own; every instance bound to the same state
// handle observes the same ledger.
type Engine struct {
	st      ledgerState
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine creates a ledger engine over the provided state. Events are
// discarded until SetEmitter is called.
func NewEngine(st ledgerState) *Engine {
	return &Engine{st: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the operator pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// Rebind points the engine at a different state handle, e.g. a transaction
// overlay. The returned engine shares emitter and pause configuration.
func (e *Engine) Rebind(st ledgerState) *Engine {
	return &Engine{st: st, emitter: e.emitter, pauses: e.pauses}
}

func (e *Engine) loadBalance(user [20]byte) (PointBalance, error) {
	var balance PointBalance
	if _, err := e.st.KVGet(balanceKey(user), &balance); err != nil {
		return PointBalance{}, fmt.Errorf("ledger: load balance: %w", err)
	}
	return balance, nil
}

func (e *Engine) storeBalance(user [20]byte, balance PointBalance) error {
	if err := e.st.KVPut(balanceKey(user), balance); err != nil {
		return fmt.Errorf("ledger: store balance: %w", err)
	}
	return nil
}

func (e *Engine) loadSupply() (uint64, error) {
	var supply uint64
	if _, err := e.st.KVGet(supplyKey, &supply); err != nil {
		return 0, fmt.Errorf("ledger: load supply: %w", err)
	}
	return supply, nil
}

func (e *Engine) storeSupply(supply uint64) error {
	if err := e.st.KVPut(supplyKey, supply); err != nil {
		return fmt.Errorf("ledger: store supply: %w", err)
	}
	return nil
}

// Earn credits the user's available balance and grows the global supply by the
// same amount. A zero amount succeeds without touching state.
func (e *Engine) Earn(user [20]byte, amount uint64) error {
	if e == nil || e.st == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	balance, err := e.loadBalance(user)
	if err != nil {
		return err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	newSupply, err := nativecommon.AddU64(supply, amount)
	if err != nil {
		return ErrSupplyOverflow
	}
	newAvailable, err := nativecommon.AddU64(balance.Available, amount)
	if err != nil {
		return ErrBalanceOverflow
	}
	balance.Available = newAvailable
	if err := e.storeBalance(user, balance); err != nil {
		return err
	}
	if err := e.storeSupply(newSupply); err != nil {
		return err
	}
	e.emitter.Emit(events.PointsEarned{User: user, Amount: amount, Supply: newSupply})
	return nil
}

// Spend debits the user's available balance and burns the same amount out of
// the global supply. Fails with ErrInsufficientBalance when the available
// sub-balance is short; no state changes on failure.
func (e *Engine) Spend(user [20]byte, amount uint64) error {
	if e == nil || e.st == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	balance, err := e.loadBalance(user)
	if err != nil {
		return err
	}
	newAvailable, err := nativecommon.SubU64(balance.Available, amount)
	if err != nil {
		return ErrInsufficientBalance
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	newSupply, err := nativecommon.SubU64(supply, amount)
	if err != nil {
		return ErrSupplyUnderflow
	}
	balance.Available = newAvailable
	if err := e.storeBalance(user, balance); err != nil {
		return err
	}
	if err := e.storeSupply(newSupply); err != nil {
		return err
	}
	e.emitter.Emit(events.PointsSpent{User: user, Amount: amount, Supply: newSupply})
	return nil
}

// Lock moves points from the available to the locked sub-balance.
func (e *Engine) Lock(user [20]byte, amount uint64) error {
	if e == nil || e.st == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	balance, err := e.loadBalance(user)
	if err != nil {
		return err
	}
	newAvailable, err := nativecommon.SubU64(balance.Available, amount)
	if err != nil {
		return ErrInsufficientBalance
	}
	newLocked, err := nativecommon.AddU64(balance.Locked, amount)
	if err != nil {
		return ErrBalanceOverflow
	}
	balance.Available = newAvailable
	balance.Locked = newLocked
	if err := e.storeBalance(user, balance); err != nil {
		return err
	}
	e.emitter.Emit(events.PointsLocked{User: user, Amount: amount})
	return nil
}

// Unlock moves points from the locked back to the available sub-balance.
func (e *Engine) Unlock(user [20]byte, amount uint64) error {
	if e == nil || e.st == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	balance, err := e.loadBalance(user)
	if err != nil {
		return err
	}
	newLocked, err := nativecommon.SubU64(balance.Locked, amount)
	if err != nil {
		return ErrInsufficientLockedBalance
	}
	newAvailable, err := nativecommon.AddU64(balance.Available, amount)
	if err != nil {
		return ErrBalanceOverflow
	}
	balance.Available = newAvailable
	balance.Locked = newLocked
	if err := e.storeBalance(user, balance); err != nil {
		return err
	}
	e.emitter.Emit(events.PointsUnlocked{User: user, Amount: amount})
	return nil
}

// Available returns the spendable balance; zero for never-seen users.
func (e *Engine) Available(user [20]byte) (uint64, error) {
	if e == nil || e.st == nil {
		return 0, ErrNilState
	}
	balance, err := e.loadBalance(user)
	if err != nil {
		return 0, err
	}
	return balance.Available, nil
}

// LockedBalance returns the reserved balance; zero for never-seen users.
func (e *Engine) LockedBalance(user [20]byte) (uint64, error) {
	if e == nil || e.st == nil {
		return 0, ErrNilState
	}
	balance, err := e.loadBalance(user)
	if err != nil {
		return 0, err
	}
	return balance.Locked, nil
}

// Total returns available+locked for the user.
func (e *Engine) Total(user [20]byte) (uint64, error) {
	if e == nil || e.st == nil {
		return 0, ErrNilState
	}
	balance, err := e.loadBalance(user)
	if err != nil {
		return 0, err
	}
	return balance.Total(), nil
}

// Supply returns the running total of points minted minus burned.
func (e *Engine) Supply() (uint64, error) {
	if e == nil || e.st == nil {
		return 0, ErrNilState
	}
	return e.loadSupply()
}
