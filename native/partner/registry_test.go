package partner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"alphapoints/core/events"
	"alphapoints/state"
	"alphapoints/storage"
)

var (
	owner = [20]byte{0x01}
	admin = [20]byte{0x02}
	other = [20]byte{0x03}
)

const day = uint64(19_700)

func newTestRegistry(t *testing.T) (*Registry, *state.Manager) {
	t.Helper()
	mgr := state.NewManager(storage.NewMemDB())
	registry := NewRegistry(mgr)
	registry.SetEmitter(mgr)
	require.NoError(t, mgr.GrantRole(RoleAdmin, admin[:]))
	return registry, mgr
}

func createCapability(t *testing.T, registry *Registry) *Capability {
	t.Helper()
	// 100 USD of collateral converts to a 100_000 point daily quota.
	capability, err := registry.Create(owner, owner, "Acme Rewards", 100_000_000, day)
	require.NoError(t, err)
	return capability
}

func TestCreateCapability(t *testing.T) {
	registry, _ := newTestRegistry(t)
	capability := createCapability(t, registry)

	require.Equal(t, uint64(100_000), capability.DailyQuota)
	require.Equal(t, uint64(100_000), capability.MintRemainingToday)
	require.Equal(t, uint64(100_000)*LifetimeQuotaDays, capability.LifetimeQuota)
	require.Equal(t, day, capability.LastEpochReset)
	require.False(t, capability.Paused)

	loaded, err := registry.Get(capability.ID)
	require.NoError(t, err)
	require.Equal(t, capability.Name, loaded.Name)
}

func TestCreateCapabilityRejections(t *testing.T) {
	registry, _ := newTestRegistry(t)

	_, err := registry.Create(owner, owner, "   ", 100_000_000, day)
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = registry.Create(other, owner, "Acme", 100_000_000, day)
	require.ErrorIs(t, err, ErrUnauthorized)

	// 500 micro-USD rounds down to a zero point quota.
	_, err = registry.Create(owner, owner, "Acme", 500, day)
	require.ErrorIs(t, err, ErrZeroCollateral)

	// Admins may create on behalf of a partner.
	_, err = registry.Create(admin, owner, "Acme", 100_000_000, day)
	require.NoError(t, err)
}

func TestConsumeQuotaWithinDay(t *testing.T) {
	registry, _ := newTestRegistry(t)
	capability := createCapability(t, registry)

	updated, err := registry.ConsumeQuota(capability.ID, 60_000, day)
	require.NoError(t, err)
	require.Equal(t, uint64(40_000), updated.MintRemainingToday)
	require.Equal(t, uint64(60_000), updated.LifetimeMinted)

	_, err = registry.ConsumeQuota(capability.ID, 50_000, day)
	require.ErrorIs(t, err, ErrDailyQuotaExceeded)

	// The failed attempt leaves the remaining quota untouched.
	loaded, err := registry.Get(capability.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(40_000), loaded.MintRemainingToday)
}

func TestQuotaResetsOnNewDay(t *testing.T) {
	registry, mgr := newTestRegistry(t)
	capability := createCapability(t, registry)

	_, err := registry.ConsumeQuota(capability.ID, 60_000, day)
	require.NoError(t, err)

	updated, err := registry.ConsumeQuota(capability.ID, 50_000, day+1)
	require.NoError(t, err)
	require.Equal(t, uint64(50_000), updated.MintRemainingToday)
	require.Equal(t, day+1, updated.LastEpochReset)
	require.Equal(t, uint64(110_000), updated.LifetimeMinted)

	var seen int
	for _, evt := range mgr.Events() {
		if evt.Type == events.TypePartnerQuotaReset {
			seen++
		}
	}
	require.Equal(t, 1, seen)
}

func TestResetDailyIfNeededIdempotent(t *testing.T) {
	registry, mgr := newTestRegistry(t)
	capability := createCapability(t, registry)

	_, err := registry.ConsumeQuota(capability.ID, 10_000, day)
	require.NoError(t, err)

	updated, err := registry.ResetDailyIfNeeded(capability.ID, day+1)
	require.NoError(t, err)
	require.Equal(t, uint64(100_000), updated.MintRemainingToday)

	before := len(mgr.Events())
	updated, err = registry.ResetDailyIfNeeded(capability.ID, day+1)
	require.NoError(t, err)
	require.Equal(t, uint64(100_000), updated.MintRemainingToday)
	require.Len(t, mgr.Events(), before)

	// A stale day number never rolls the epoch backwards.
	updated, err = registry.ResetDailyIfNeeded(capability.ID, day)
	require.NoError(t, err)
	require.Equal(t, day+1, updated.LastEpochReset)
}

func TestLifetimeQuota(t *testing.T) {
	registry, _ := newTestRegistry(t)
	capability := createCapability(t, registry)

	c, err := registry.Get(capability.ID)
	require.NoError(t, err)
	c.LifetimeMinted = c.LifetimeQuota - 5_000
	require.ErrorIs(t, c.ValidateAndDecrement(10_000), ErrLifetimeQuotaExceeded)
	require.NoError(t, c.ValidateAndDecrement(5_000))
}

func TestPauseResumeRevoke(t *testing.T) {
	registry, _ := newTestRegistry(t)
	capability := createCapability(t, registry)

	require.ErrorIs(t, registry.Pause(other, capability.ID), ErrUnauthorized)
	require.NoError(t, registry.Pause(owner, capability.ID))

	_, err := registry.ConsumeQuota(capability.ID, 1, day)
	require.ErrorIs(t, err, ErrCapabilityPaused)

	require.NoError(t, registry.Resume(owner, capability.ID))
	_, err = registry.ConsumeQuota(capability.ID, 1, day)
	require.NoError(t, err)

	// Only admins revoke.
	require.ErrorIs(t, registry.Revoke(owner, capability.ID), ErrUnauthorized)
	require.NoError(t, registry.Revoke(admin, capability.ID))
	_, err = registry.Get(capability.ID)
	require.ErrorIs(t, err, ErrCapabilityNotFound)
}

func TestTopUpCollateralGrowsQuota(t *testing.T) {
	registry, _ := newTestRegistry(t)
	capability := createCapability(t, registry)

	_, err := registry.ConsumeQuota(capability.ID, 60_000, day)
	require.NoError(t, err)

	// Another 50 USD raises the daily quota to 150_000; the current day's
	// remaining allowance catches up at the next epoch reset.
	require.NoError(t, registry.TopUpCollateral(owner, capability.ID, 50_000_000))

	updated, err := registry.Get(capability.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(150_000), updated.DailyQuota)
	require.Equal(t, uint64(40_000), updated.MintRemainingToday)

	updated, err = registry.ResetDailyIfNeeded(capability.ID, day+1)
	require.NoError(t, err)
	require.Equal(t, uint64(150_000), updated.MintRemainingToday)
}

func TestReinvestRevenue(t *testing.T) {
	registry, _ := newTestRegistry(t)
	capability := createCapability(t, registry)

	require.NoError(t, registry.SetReinvestPct(owner, capability.ID, 50))
	require.Error(t, registry.SetReinvestPct(owner, capability.ID, 101))

	require.NoError(t, registry.ReinvestRevenue(capability.ID, 10_000_000))
	updated, err := registry.Get(capability.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(110_000_000), updated.CollateralMicroUSD)
	require.Equal(t, uint64(110_000), updated.DailyQuota)

	// Zero is a no-op.
	require.NoError(t, registry.ReinvestRevenue(capability.ID, 0))
}

func TestSetPolicyValidation(t *testing.T) {
	registry, _ := newTestRegistry(t)
	capability := createCapability(t, registry)

	bad := DefaultPolicy()
	bad.MinPartnerSharePct = 80
	bad.MaxPartnerSharePct = 20
	require.ErrorIs(t, registry.SetPolicy(owner, capability.ID, bad), ErrInvalidPolicy)

	good := DefaultPolicy()
	good.MaxCostPerPerk = 42
	require.NoError(t, registry.SetPolicy(owner, capability.ID, good))

	updated, err := registry.Get(capability.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(42), updated.Policy.MaxCostPerPerk)
}

func TestPolicyTypeAndTagMatching(t *testing.T) {
	policy := DefaultPolicy()
	policy.AllowedPerkTypes = []string{"voucher"}
	policy.BlacklistedPerkTypes = []string{"voucher"}

	// Blacklist wins over allow-list.
	allowed, blacklisted := policy.TypeAllowed("voucher")
	require.True(t, blacklisted)
	require.False(t, allowed)

	allowed, blacklisted = policy.TypeAllowed("ticket")
	require.False(t, allowed)
	require.False(t, blacklisted)

	// An empty allow-list admits every tag.
	allowed, blacklisted = policy.TagAllowed("anything")
	require.True(t, allowed)
	require.False(t, blacklisted)
}
