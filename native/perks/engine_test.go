package perks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"alphapoints/native/ledger"
	"alphapoints/native/oracle"
	"alphapoints/native/partner"
	"alphapoints/state"
	"alphapoints/storage"
)

var (
	partnerOwner   = [20]byte{0x01}
	user           = [20]byte{0x02}
	partnerPayout  = [20]byte{0x03}
	platformPayout = [20]byte{0x04}
)

type testEnv struct {
	mgr      *state.Manager
	partners *partner.Registry
	ledger   *ledger.Engine
	engine   *Engine
	source   *oracle.StaticSource
	ora      *oracle.Oracle
	now      time.Time
	cap      *partner.Capability
}

// newTestEnv wires the full stack over an in-memory database: an oracle
// quoting 1000 points per USD, a partner backed by 100 USD collateral
// (100_000 points of daily quota), and a user holding 60_000 points.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	now := time.Unix(1_700_000_000, 0).UTC()

	mgr := state.NewManager(storage.NewMemDB())
	source := oracle.NewStaticSource(oracle.RateQuote{
		Rate:      1,
		Decimals:  3,
		Timestamp: now,
		Source:    "static",
	})
	ora := oracle.New(source, 15*time.Minute)
	ora.SetClock(func() time.Time { return now })

	ledgerEngine := ledger.NewEngine(mgr)
	ledgerEngine.SetEmitter(mgr)

	partners := partner.NewRegistry(mgr)
	partners.SetEmitter(mgr)

	engine := NewEngine(mgr, partners, ledgerEngine, ora)
	engine.SetEmitter(mgr)
	engine.SetNowFunc(func() time.Time { return now })

	day := uint64(now.Unix() / 86_400)
	capability, err := partners.Create(partnerOwner, partnerOwner, "Acme Rewards", 100_000_000, day)
	require.NoError(t, err)
	require.Equal(t, uint64(100_000), capability.DailyQuota)

	require.NoError(t, ledgerEngine.Earn(user, 60_000))

	return &testEnv{
		mgr:      mgr,
		partners: partners,
		ledger:   ledgerEngine,
		engine:   engine,
		source:   source,
		ora:      ora,
		now:      now,
		cap:      capability,
	}
}

func (env *testEnv) createPerk(t *testing.T, in CreateInput) *Definition {
	t.Helper()
	if in.Name == "" {
		in.Name = "Free Coffee"
	}
	if in.PerkType == "" {
		in.PerkType = "voucher"
	}
	if in.USDPriceMicro == 0 {
		in.USDPriceMicro = 50_000_000 // 50 USD
	}
	if in.PartnerSharePct == 0 {
		in.PartnerSharePct = 70
	}
	if in.PartnerPayout == ([20]byte{}) {
		in.PartnerPayout = partnerPayout
	}
	if in.PlatformPayout == ([20]byte{}) {
		in.PlatformPayout = platformPayout
	}
	def, err := env.engine.CreateDefinition(partnerOwner, env.cap.ID, in)
	require.NoError(t, err)
	return def
}

func TestCreateDefinitionPricesFromOracle(t *testing.T) {
	env := newTestEnv(t)

	def := env.createPerk(t, CreateInput{})
	require.Equal(t, uint64(50_000), def.CurrentPointsPrice)
	require.True(t, def.Active)
	require.Equal(t, env.cap.ID, def.Creator)

	stored, err := env.engine.GetDefinition(def.ID)
	require.NoError(t, err)
	require.Equal(t, def.CurrentPointsPrice, stored.CurrentPointsPrice)

	updated, err := env.partners.Get(env.cap.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(1), updated.PerksCreated)
}

func TestCreateDefinitionGateOrder(t *testing.T) {
	env := newTestEnv(t)

	policy := partner.DefaultPolicy()
	policy.BlacklistedPerkTypes = []string{"gambling"}
	policy.MaxCostPerPerk = 10_000
	policy.BlacklistedTags = []string{"adult"}
	require.NoError(t, env.partners.SetPolicy(partnerOwner, env.cap.ID, policy))

	_, err := env.engine.CreateDefinition(partnerOwner, env.cap.ID, CreateInput{
		Name: "Slots", PerkType: "gambling", USDPriceMicro: 1_000_000, PartnerSharePct: 50,
		PartnerPayout: partnerPayout, PlatformPayout: platformPayout,
	})
	require.ErrorIs(t, err, ErrTypeBlacklisted)

	// 50 USD converts to 50_000 points, above the 10_000 point cost cap.
	_, err = env.engine.CreateDefinition(partnerOwner, env.cap.ID, CreateInput{
		Name: "Spa Day", PerkType: "voucher", USDPriceMicro: 50_000_000, PartnerSharePct: 50,
		PartnerPayout: partnerPayout, PlatformPayout: platformPayout,
	})
	require.ErrorIs(t, err, ErrCostExceedsLimit)

	_, err = env.engine.CreateDefinition(partnerOwner, env.cap.ID, CreateInput{
		Name: "Cheap Sticker", PerkType: "voucher", USDPriceMicro: 1_000_000, PartnerSharePct: 95,
		PartnerPayout: partnerPayout, PlatformPayout: platformPayout,
	})
	require.ErrorIs(t, err, ErrShareOutOfRange)

	_, err = env.engine.CreateDefinition(partnerOwner, env.cap.ID, CreateInput{
		Name: "Tagged", PerkType: "voucher", USDPriceMicro: 1_000_000, PartnerSharePct: 50,
		Tags:          []string{"fun", "adult"},
		PartnerPayout: partnerPayout, PlatformPayout: platformPayout,
	})
	require.ErrorIs(t, err, ErrTagBlacklisted)

	_, err = env.engine.CreateDefinition(partnerOwner, env.cap.ID, CreateInput{
		Name: "Overloaded", PerkType: "voucher", USDPriceMicro: 1_000_000, PartnerSharePct: 50,
		Tags:          []string{"a", "b", "c", "d", "e", "f"},
		PartnerPayout: partnerPayout, PlatformPayout: platformPayout,
	})
	require.ErrorIs(t, err, ErrTooManyTags)
}

func TestCreateDefinitionNormalizesTags(t *testing.T) {
	env := newTestEnv(t)

	policy := partner.DefaultPolicy()
	policy.BlacklistedTags = []string{"adult"}
	require.NoError(t, env.partners.SetPolicy(partnerOwner, env.cap.ID, policy))

	// padding must not slip a blacklisted tag past the gate
	_, err := env.engine.CreateDefinition(partnerOwner, env.cap.ID, CreateInput{
		Name: "Padded", PerkType: "voucher", USDPriceMicro: 1_000_000, PartnerSharePct: 50,
		Tags:          []string{" adult "},
		PartnerPayout: partnerPayout, PlatformPayout: platformPayout,
	})
	require.ErrorIs(t, err, ErrTagBlacklisted)

	def := env.createPerk(t, CreateInput{
		Name: "Tidy", Tags: []string{" coffee ", "", "  morning"},
	})
	require.Equal(t, []string{"coffee", "morning"}, def.Tags)

	stored, err := env.engine.GetDefinition(def.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"coffee", "morning"}, stored.Tags)
}

func TestCreateDefinitionConsumableDisabled(t *testing.T) {
	env := newTestEnv(t)

	policy := partner.DefaultPolicy()
	policy.AllowConsumablePerks = false
	require.NoError(t, env.partners.SetPolicy(partnerOwner, env.cap.ID, policy))

	uses := uint64(3)
	_, err := env.engine.CreateDefinition(partnerOwner, env.cap.ID, CreateInput{
		Name: "Punch Card", PerkType: "voucher", USDPriceMicro: 1_000_000, PartnerSharePct: 50,
		MaxUsesPerClaim: &uses,
		PartnerPayout:   partnerPayout, PlatformPayout: platformPayout,
	})
	require.ErrorIs(t, err, ErrConsumablesDisabled)
}

func TestCreateDefinitionPerkLimit(t *testing.T) {
	env := newTestEnv(t)

	policy := partner.DefaultPolicy()
	policy.MaxPerksPerPartner = 1
	require.NoError(t, env.partners.SetPolicy(partnerOwner, env.cap.ID, policy))

	env.createPerk(t, CreateInput{Name: "First"})
	_, err := env.engine.CreateDefinition(partnerOwner, env.cap.ID, CreateInput{
		Name: "Second", PerkType: "voucher", USDPriceMicro: 1_000_000, PartnerSharePct: 50,
		PartnerPayout: partnerPayout, PlatformPayout: platformPayout,
	})
	require.ErrorIs(t, err, ErrPerkLimitReached)
}

func TestClaimSplitsRevenue(t *testing.T) {
	env := newTestEnv(t)
	def := env.createPerk(t, CreateInput{})

	claim, err := env.engine.Claim(user, def.ID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, claim.Status)
	require.Equal(t, user, claim.Owner)

	available, err := env.ledger.Available(user)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), available)

	partnerBal, err := env.ledger.Available(partnerPayout)
	require.NoError(t, err)
	require.Equal(t, uint64(35_000), partnerBal)

	platformBal, err := env.ledger.Available(platformPayout)
	require.NoError(t, err)
	require.Equal(t, uint64(15_000), platformBal)

	// The debit and the two credits cancel out, leaving supply untouched.
	supply, err := env.ledger.Supply()
	require.NoError(t, err)
	require.Equal(t, uint64(60_000), supply)

	capability, err := env.partners.Get(env.cap.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(65_000), capability.MintRemainingToday)
	require.Equal(t, uint64(35_000), capability.LifetimeMinted)

	stored, err := env.engine.GetDefinition(def.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(1), stored.TotalClaims)
}

func TestClaimMaxClaims(t *testing.T) {
	env := newTestEnv(t)
	one := uint64(1)
	def := env.createPerk(t, CreateInput{USDPriceMicro: 1_000_000, MaxClaims: &one})

	_, err := env.engine.Claim(user, def.ID)
	require.NoError(t, err)

	other := [20]byte{0x05}
	require.NoError(t, env.ledger.Earn(other, 5_000))

	beforeCap, err := env.partners.Get(env.cap.ID)
	require.NoError(t, err)
	beforeSupply, err := env.ledger.Supply()
	require.NoError(t, err)

	_, err = env.engine.Claim(other, def.ID)
	require.ErrorIs(t, err, ErrMaxClaimsReached)

	// the rejected claim must not move balances, quota or counters
	available, err := env.ledger.Available(other)
	require.NoError(t, err)
	require.Equal(t, uint64(5_000), available)

	supply, err := env.ledger.Supply()
	require.NoError(t, err)
	require.Equal(t, beforeSupply, supply)

	afterCap, err := env.partners.Get(env.cap.ID)
	require.NoError(t, err)
	require.Equal(t, beforeCap.MintRemainingToday, afterCap.MintRemainingToday)
	require.Equal(t, beforeCap.LifetimeMinted, afterCap.LifetimeMinted)

	stored, err := env.engine.GetDefinition(def.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(1), stored.TotalClaims)
}

func TestClaimInactiveAndExpired(t *testing.T) {
	env := newTestEnv(t)
	def := env.createPerk(t, CreateInput{USDPriceMicro: 1_000_000})

	require.NoError(t, env.engine.SetActive(partnerOwner, def.ID, false))
	_, err := env.engine.Claim(user, def.ID)
	require.ErrorIs(t, err, ErrPerkNotActive)
	require.NoError(t, env.engine.SetActive(partnerOwner, def.ID, true))

	expired := env.createPerk(t, CreateInput{
		Name: "Flash Sale", USDPriceMicro: 1_000_000,
		ExpiresAt: env.now.Add(-time.Minute).Unix(),
	})
	_, err = env.engine.Claim(user, expired.ID)
	require.ErrorIs(t, err, ErrPerkExpired)
}

func TestClaimInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	// 100 USD perk costs 100_000 points, more than the user's 60_000.
	def := env.createPerk(t, CreateInput{Name: "Big Ticket", USDPriceMicro: 100_000_000})

	_, err := env.engine.Claim(user, def.ID)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	available, err := env.ledger.Available(user)
	require.NoError(t, err)
	require.Equal(t, uint64(60_000), available)

	supply, err := env.ledger.Supply()
	require.NoError(t, err)
	require.Equal(t, uint64(60_000), supply)

	capability, err := env.partners.Get(env.cap.ID)
	require.NoError(t, err)
	require.Equal(t, capability.DailyQuota, capability.MintRemainingToday)

	stored, err := env.engine.GetDefinition(def.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(0), stored.TotalClaims)
}

func TestClaimQuotaExhaustedLeavesBalancesUntouched(t *testing.T) {
	env := newTestEnv(t)
	def := env.createPerk(t, CreateInput{})

	day := uint64(env.now.Unix() / 86_400)
	// Drain the daily quota so the 35_000 point partner share cannot fit.
	_, err := env.partners.ConsumeQuota(env.cap.ID, 90_000, day)
	require.NoError(t, err)

	_, err = env.engine.Claim(user, def.ID)
	require.ErrorIs(t, err, partner.ErrDailyQuotaExceeded)

	available, err := env.ledger.Available(user)
	require.NoError(t, err)
	require.Equal(t, uint64(60_000), available)
}

func TestClaimStaleOracleOnRefresh(t *testing.T) {
	env := newTestEnv(t)
	def := env.createPerk(t, CreateInput{})

	// Move past the refresh interval without a fresh quote.
	later := env.now.Add(2 * time.Hour)
	env.engine.SetNowFunc(func() time.Time { return later })
	env.ora.SetClock(func() time.Time { return later })

	_, err := env.engine.Claim(user, def.ID)
	require.ErrorIs(t, err, oracle.ErrStale)

	// A fresh quote at double the rate reprices the perk before charging.
	env.source.Update(oracle.RateQuote{Rate: 2, Decimals: 3, Timestamp: later, Source: "static"})

	_, err = env.engine.Claim(user, def.ID)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance) // now 100_000 points

	stored, err := env.engine.GetDefinition(def.ID)
	require.NoError(t, err)
	require.Equal(t, def.CurrentPointsPrice, stored.CurrentPointsPrice)
}

func TestClaimCooldown(t *testing.T) {
	env := newTestEnv(t)
	def := env.createPerk(t, CreateInput{
		USDPriceMicro:   1_000_000,
		CooldownSeconds: 3_600,
	})

	_, err := env.engine.Claim(user, def.ID)
	require.NoError(t, err)

	_, err = env.engine.Claim(user, def.ID)
	require.ErrorIs(t, err, ErrAlreadyClaimedTooSoon)
}

func TestConsumeUseLifecycle(t *testing.T) {
	env := newTestEnv(t)
	uses := uint64(2)
	def := env.createPerk(t, CreateInput{USDPriceMicro: 1_000_000, MaxUsesPerClaim: &uses})

	claim, err := env.engine.Claim(user, def.ID)
	require.NoError(t, err)
	require.NotNil(t, claim.RemainingUses)
	require.Equal(t, uint64(2), *claim.RemainingUses)

	claim, err = env.engine.ConsumeUse(user, claim.ID, def.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(1), *claim.RemainingUses)
	require.Equal(t, StatusActive, claim.Status)

	claim, err = env.engine.ConsumeUse(user, claim.ID, def.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(0), *claim.RemainingUses)
	require.Equal(t, StatusFullyConsumed, claim.Status)

	_, err = env.engine.ConsumeUse(user, claim.ID, def.ID)
	require.ErrorIs(t, err, ErrMaxUsesReached)
}

func TestConsumeUseGuards(t *testing.T) {
	env := newTestEnv(t)
	uses := uint64(1)
	def := env.createPerk(t, CreateInput{USDPriceMicro: 1_000_000, MaxUsesPerClaim: &uses})
	plain := env.createPerk(t, CreateInput{Name: "Plain", USDPriceMicro: 1_000_000})

	claim, err := env.engine.Claim(user, def.ID)
	require.NoError(t, err)

	_, err = env.engine.ConsumeUse(user, claim.ID, plain.ID)
	require.ErrorIs(t, err, ErrWrongPerkDefinition)

	stranger := [20]byte{0x09}
	_, err = env.engine.ConsumeUse(stranger, claim.ID, def.ID)
	require.ErrorIs(t, err, ErrNotClaimOwner)

	plainClaim, err := env.engine.Claim(user, plain.ID)
	require.NoError(t, err)
	_, err = env.engine.ConsumeUse(user, plainClaim.ID, plain.ID)
	require.ErrorIs(t, err, ErrNotConsumable)
}

func TestClaimMintsUniqueMetadata(t *testing.T) {
	env := newTestEnv(t)

	policy := partner.DefaultPolicy()
	policy.AllowUniqueMetadata = true
	require.NoError(t, env.partners.SetPolicy(partnerOwner, env.cap.ID, policy))

	def := env.createPerk(t, CreateInput{USDPriceMicro: 1_000_000, UniqueMetadata: true})

	claim, err := env.engine.Claim(user, def.ID)
	require.NoError(t, err)
	require.NotEqual(t, [32]byte{}, claim.MetadataID)

	meta, err := env.engine.GetMetadata(claim.MetadataID)
	require.NoError(t, err)
	require.Equal(t, claim.ID, meta.Claim)
	require.Equal(t, def.ID, meta.Definition)
}

func TestSetActiveAuthorization(t *testing.T) {
	env := newTestEnv(t)
	def := env.createPerk(t, CreateInput{USDPriceMicro: 1_000_000})

	stranger := [20]byte{0x09}
	err := env.engine.SetActive(stranger, def.ID, false)
	require.ErrorIs(t, err, ErrNotPerkCreator)

	require.NoError(t, env.mgr.GrantRole(partner.RoleAdmin, stranger[:]))
	require.NoError(t, env.engine.SetActive(stranger, def.ID, false))
}

func TestUpdateDescription(t *testing.T) {
	env := newTestEnv(t)
	def := env.createPerk(t, CreateInput{USDPriceMicro: 1_000_000})

	stranger := [20]byte{0x09}
	err := env.engine.UpdateDescription(stranger, def.ID, "new copy")
	require.ErrorIs(t, err, ErrNotPerkCreator)

	require.NoError(t, env.engine.UpdateDescription(partnerOwner, def.ID, "new copy"))
	updated, err := env.engine.GetDefinition(def.ID)
	require.NoError(t, err)
	require.Equal(t, "new copy", updated.Description)
	require.Equal(t, def.CurrentPointsPrice, updated.CurrentPointsPrice)
}

func TestClaimModulePaused(t *testing.T) {
	env := newTestEnv(t)
	def := env.createPerk(t, CreateInput{USDPriceMicro: 1_000_000})

	env.mgr.SetPaused("perks", true)
	env.engine.SetPauses(env.mgr)

	_, err := env.engine.Claim(user, def.ID)
	require.Error(t, err)

	env.mgr.SetPaused("perks", false)
	_, err = env.engine.Claim(user, def.ID)
	require.NoError(t, err)
}

func TestClaimIndexes(t *testing.T) {
	env := newTestEnv(t)
	def := env.createPerk(t, CreateInput{USDPriceMicro: 1_000_000})

	claim, err := env.engine.Claim(user, def.ID)
	require.NoError(t, err)

	defs, err := env.engine.DefinitionsByCreator(env.cap.ID)
	require.NoError(t, err)
	require.Equal(t, [][32]byte{def.ID}, defs)

	claims, err := env.engine.ClaimsByOwner(user)
	require.NoError(t, err)
	require.Equal(t, [][32]byte{claim.ID}, claims)
}
