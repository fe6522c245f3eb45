package points

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"alphapoints/core/events"
	"alphapoints/native/ledger"
	"alphapoints/native/oracle"
	"alphapoints/native/partner"
	"alphapoints/native/perks"
	"alphapoints/state"
	"alphapoints/storage"
)

var (
	partnerOwner   = [20]byte{0x01}
	user           = [20]byte{0x02}
	partnerPayout  = [20]byte{0x03}
	platformPayout = [20]byte{0x04}
)

func newTestService(t *testing.T) (*Service, *partner.Capability) {
	t.Helper()
	now := time.Unix(1_700_000_000, 0).UTC()

	mgr := state.NewManager(storage.NewMemDB())
	source := oracle.NewStaticSource(oracle.RateQuote{
		Rate: 1, Decimals: 3, Timestamp: now, Source: "static",
	})
	ora := oracle.New(source, 15*time.Minute)
	ora.SetClock(func() time.Time { return now })

	svc := NewService(mgr, ora)
	svc.SetNowFunc(func() time.Time { return now })

	capability, err := svc.CreatePartner(partnerOwner, partnerOwner, "Acme Rewards", 100_000_000)
	require.NoError(t, err)
	return svc, capability
}

func TestEarnRedeemLockFlow(t *testing.T) {
	svc, capability := newTestService(t)

	require.NoError(t, svc.EarnFromPartner(partnerOwner, capability.ID, user, 1_000))

	available, locked, err := svc.Balance(user)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), available)
	require.Equal(t, uint64(0), locked)

	asset, err := svc.RedeemPoints(user, 300)
	require.NoError(t, err)
	// 1000 points per USD over micro-USD: 300 points pay out 300_000 micro-USD
	require.Equal(t, uint64(300_000), asset)
	require.NoError(t, svc.LockPoints(user, 200))

	available, locked, err = svc.Balance(user)
	require.NoError(t, err)
	require.Equal(t, uint64(500), available)
	require.Equal(t, uint64(200), locked)

	require.NoError(t, svc.UnlockPoints(user, 200))

	supply, err := svc.Supply()
	require.NoError(t, err)
	require.Equal(t, uint64(700), supply)
}

func TestEarnFromPartnerAuthorization(t *testing.T) {
	svc, capability := newTestService(t)

	stranger := [20]byte{0x09}
	err := svc.EarnFromPartner(stranger, capability.ID, user, 100)
	require.ErrorIs(t, err, partner.ErrUnauthorized)

	require.NoError(t, svc.State().GrantRole(partner.RoleAdmin, stranger[:]))
	require.NoError(t, svc.EarnFromPartner(stranger, capability.ID, user, 100))
}

func TestEarnFromPartnerQuota(t *testing.T) {
	svc, capability := newTestService(t)

	require.NoError(t, svc.EarnFromPartner(partnerOwner, capability.ID, user, 60_000))
	err := svc.EarnFromPartner(partnerOwner, capability.ID, user, 50_000)
	require.ErrorIs(t, err, partner.ErrDailyQuotaExceeded)

	// The failed mint leaves no trace: balance and quota stay put.
	available, _, err := svc.Balance(user)
	require.NoError(t, err)
	require.Equal(t, uint64(60_000), available)

	loaded, err := svc.GetPartner(capability.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(40_000), loaded.MintRemainingToday)
}

func TestClaimPerkEndToEnd(t *testing.T) {
	svc, capability := newTestService(t)
	require.NoError(t, svc.EarnFromPartner(partnerOwner, capability.ID, user, 60_000))

	def, err := svc.CreatePerk(partnerOwner, capability.ID, perks.CreateInput{
		Name: "Free Coffee", PerkType: "voucher",
		USDPriceMicro: 50_000_000, PartnerSharePct: 70,
		PartnerPayout: partnerPayout, PlatformPayout: platformPayout,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(50_000), def.CurrentPointsPrice)

	claim, err := svc.ClaimPerk(user, def.ID)
	require.NoError(t, err)

	available, _, err := svc.Balance(user)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), available)

	partnerBal, _, err := svc.Balance(partnerPayout)
	require.NoError(t, err)
	require.Equal(t, uint64(35_000), partnerBal)

	platformBal, _, err := svc.Balance(platformPayout)
	require.NoError(t, err)
	require.Equal(t, uint64(15_000), platformBal)

	loaded, err := svc.GetClaim(claim.ID)
	require.NoError(t, err)
	require.Equal(t, perks.StatusActive, loaded.Status)

	claims, err := svc.ClaimsByOwner(user)
	require.NoError(t, err)
	require.Equal(t, [][32]byte{claim.ID}, claims)
}

func TestFailedClaimEmitsNothing(t *testing.T) {
	svc, capability := newTestService(t)
	require.NoError(t, svc.EarnFromPartner(partnerOwner, capability.ID, user, 1_000))

	def, err := svc.CreatePerk(partnerOwner, capability.ID, perks.CreateInput{
		Name: "Big Ticket", PerkType: "voucher",
		USDPriceMicro: 50_000_000, PartnerSharePct: 70,
		PartnerPayout: partnerPayout, PlatformPayout: platformPayout,
	})
	require.NoError(t, err)

	before := len(svc.State().Events())
	_, err = svc.ClaimPerk(user, def.ID)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	require.Len(t, svc.State().Events(), before)

	// Nothing moved.
	available, _, err := svc.Balance(user)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), available)
}

func TestTransactionJournalOrdering(t *testing.T) {
	svc, capability := newTestService(t)
	require.NoError(t, svc.EarnFromPartner(partnerOwner, capability.ID, user, 60_000))

	def, err := svc.CreatePerk(partnerOwner, capability.ID, perks.CreateInput{
		Name: "Free Coffee", PerkType: "voucher",
		USDPriceMicro: 50_000_000, PartnerSharePct: 70,
		PartnerPayout: partnerPayout, PlatformPayout: platformPayout,
	})
	require.NoError(t, err)

	_, err = svc.ClaimPerk(user, def.ID)
	require.NoError(t, err)

	var sawSpend, sawClaim bool
	for _, evt := range svc.State().Events() {
		switch evt.Type {
		case events.TypePointsSpent:
			sawSpend = true
		case events.TypePerkClaimed:
			require.True(t, sawSpend, "debit event must precede the claim event")
			sawClaim = true
		}
	}
	require.True(t, sawClaim)
}
