package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"alphapoints/core/events"
	"alphapoints/state"
	"alphapoints/storage"
)

var (
	alice = [20]byte{0xaa}
	bob   = [20]byte{0xbb}
)

func newTestEngine(t *testing.T) (*Engine, *state.Manager) {
	t.Helper()
	mgr := state.NewManager(storage.NewMemDB())
	engine := NewEngine(mgr)
	engine.SetEmitter(mgr)
	return engine, mgr
}

func TestEarnSpendLockUnlock(t *testing.T) {
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.Earn(alice, 1_000))

	available, err := engine.Available(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), available)

	supply, err := engine.Supply()
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), supply)

	require.NoError(t, engine.Spend(alice, 300))
	available, err = engine.Available(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(700), available)

	supply, err = engine.Supply()
	require.NoError(t, err)
	require.Equal(t, uint64(700), supply)

	require.NoError(t, engine.Lock(alice, 200))
	available, err = engine.Available(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(500), available)
	locked, err := engine.LockedBalance(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(200), locked)

	// Locking moves points between sub-balances without touching supply.
	supply, err = engine.Supply()
	require.NoError(t, err)
	require.Equal(t, uint64(700), supply)

	total, err := engine.Total(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(700), total)

	require.NoError(t, engine.Unlock(alice, 200))
	available, err = engine.Available(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(700), available)
	locked, err = engine.LockedBalance(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(0), locked)
}

func TestSpendInsufficient(t *testing.T) {
	engine, _ := newTestEngine(t)
	require.NoError(t, engine.Earn(alice, 100))
	require.NoError(t, engine.Lock(alice, 60))

	// Locked points are not spendable.
	err := engine.Spend(alice, 50)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	available, err := engine.Available(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(40), available)
	supply, err := engine.Supply()
	require.NoError(t, err)
	require.Equal(t, uint64(100), supply)
}

func TestLockInsufficient(t *testing.T) {
	engine, _ := newTestEngine(t)
	require.NoError(t, engine.Earn(alice, 10))
	require.ErrorIs(t, engine.Lock(alice, 11), ErrInsufficientBalance)
	require.ErrorIs(t, engine.Unlock(alice, 1), ErrInsufficientLockedBalance)
}

func TestUnknownUserReadsZero(t *testing.T) {
	engine, _ := newTestEngine(t)
	available, err := engine.Available(bob)
	require.NoError(t, err)
	require.Equal(t, uint64(0), available)
	locked, err := engine.LockedBalance(bob)
	require.NoError(t, err)
	require.Equal(t, uint64(0), locked)
	require.ErrorIs(t, engine.Spend(bob, 1), ErrInsufficientBalance)
}

func TestZeroAmountIsNoOp(t *testing.T) {
	engine, mgr := newTestEngine(t)
	require.NoError(t, engine.Earn(alice, 0))
	require.NoError(t, engine.Spend(alice, 0))
	require.NoError(t, engine.Lock(alice, 0))
	require.NoError(t, engine.Unlock(alice, 0))
	require.Empty(t, mgr.Events())
	supply, err := engine.Supply()
	require.NoError(t, err)
	require.Equal(t, uint64(0), supply)
}

func TestBalanceOverflow(t *testing.T) {
	engine, _ := newTestEngine(t)
	require.NoError(t, engine.Earn(alice, math.MaxUint64))
	err := engine.Earn(alice, 1)
	require.ErrorIs(t, err, ErrSupplyOverflow)
}

func TestSupplyConservation(t *testing.T) {
	engine, _ := newTestEngine(t)
	require.NoError(t, engine.Earn(alice, 500))
	require.NoError(t, engine.Earn(bob, 250))
	require.NoError(t, engine.Spend(alice, 100))
	require.NoError(t, engine.Lock(bob, 50))

	aliceTotal, err := engine.Total(alice)
	require.NoError(t, err)
	bobTotal, err := engine.Total(bob)
	require.NoError(t, err)
	supply, err := engine.Supply()
	require.NoError(t, err)
	require.Equal(t, supply, aliceTotal+bobTotal)
}

func TestLedgerEmitsEvents(t *testing.T) {
	engine, mgr := newTestEngine(t)
	require.NoError(t, engine.Earn(alice, 100))
	require.NoError(t, engine.Spend(alice, 40))
	require.NoError(t, engine.Lock(alice, 10))
	require.NoError(t, engine.Unlock(alice, 10))

	evts := mgr.Events()
	require.Len(t, evts, 4)
	require.Equal(t, events.TypePointsEarned, evts[0].Type)
	require.Equal(t, events.TypePointsSpent, evts[1].Type)
	require.Equal(t, events.TypePointsLocked, evts[2].Type)
	require.Equal(t, events.TypePointsUnlocked, evts[3].Type)
	require.Equal(t, "60", evts[1].Attributes["supply"])
}

func TestLedgerPaused(t *testing.T) {
	engine, mgr := newTestEngine(t)
	engine.SetPauses(mgr)
	mgr.SetPaused("ledger", true)
	require.Error(t, engine.Earn(alice, 1))
	mgr.SetPaused("ledger", false)
	require.NoError(t, engine.Earn(alice, 1))
}
