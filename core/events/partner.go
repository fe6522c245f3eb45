package events

import "alphapoints/core/types"

const (
	TypePartnerCreated             = "partner.created"
	TypePartnerPaused              = "partner.paused"
	TypePartnerResumed             = "partner.resumed"
	TypePartnerRevoked             = "partner.revoked"
	TypePartnerQuotaReset          = "partner.quota_reset"
	TypePartnerCollateralIncreased = "partner.collateral_increased"
)

// PartnerCreated is emitted when a partner capability is minted against
// deposited collateral.
type PartnerCreated struct {
	ID                 [32]byte
	Owner              [20]byte
	Name               string
	CollateralMicroUSD uint64
	DailyQuota         uint64
	LifetimeQuota      uint64
}

func (PartnerCreated) EventType() string { return TypePartnerCreated }

func (e PartnerCreated) Event() *types.Event {
	return &types.Event{
		Type: TypePartnerCreated,
		Attributes: map[string]string{
			"id":            hexID(e.ID),
			"owner":         hexAddr(e.Owner),
			"name":          e.Name,
			"collateral":    uintToString(e.CollateralMicroUSD),
			"dailyQuota":    uintToString(e.DailyQuota),
			"lifetimeQuota": uintToString(e.LifetimeQuota),
		},
	}
}

// PartnerPaused is emitted when minting through the capability is suspended.
type PartnerPaused struct {
	ID     [32]byte
	Caller [20]byte
}

func (PartnerPaused) EventType() string { return TypePartnerPaused }

func (e PartnerPaused) Event() *types.Event {
	return &types.Event{
		Type: TypePartnerPaused,
		Attributes: map[string]string{
			"id":     hexID(e.ID),
			"caller": hexAddr(e.Caller),
		},
	}
}

// PartnerResumed is emitted when a paused capability is reactivated.
type PartnerResumed struct {
	ID     [32]byte
	Caller [20]byte
}

func (PartnerResumed) EventType() string { return TypePartnerResumed }

func (e PartnerResumed) Event() *types.Event {
	return &types.Event{
		Type: TypePartnerResumed,
		Attributes: map[string]string{
			"id":     hexID(e.ID),
			"caller": hexAddr(e.Caller),
		},
	}
}

// PartnerRevoked is emitted when an admin destroys a capability.
type PartnerRevoked struct {
	ID     [32]byte
	Caller [20]byte
}

func (PartnerRevoked) EventType() string { return TypePartnerRevoked }

func (e PartnerRevoked) Event() *types.Event {
	return &types.Event{
		Type: TypePartnerRevoked,
		Attributes: map[string]string{
			"id":     hexID(e.ID),
			"caller": hexAddr(e.Caller),
		},
	}
}

// PartnerQuotaReset is emitted when the lazy daily throttle replenishes.
type PartnerQuotaReset struct {
	ID         [32]byte
	Day        uint64
	DailyQuota uint64
}

func (PartnerQuotaReset) EventType() string { return TypePartnerQuotaReset }

func (e PartnerQuotaReset) Event() *types.Event {
	return &types.Event{
		Type: TypePartnerQuotaReset,
		Attributes: map[string]string{
			"id":         hexID(e.ID),
			"day":        uintToString(e.Day),
			"dailyQuota": uintToString(e.DailyQuota),
		},
	}
}

// PartnerCollateralIncreased is emitted on top-ups and revenue reinvestment.
type PartnerCollateralIncreased struct {
	ID                 [32]byte
	AddedMicroUSD      uint64
	CollateralMicroUSD uint64
	DailyQuota         uint64
	Reason             string
}

func (PartnerCollateralIncreased) EventType() string { return TypePartnerCollateralIncreased }

func (e PartnerCollateralIncreased) Event() *types.Event {
	return &types.Event{
		Type: TypePartnerCollateralIncreased,
		Attributes: map[string]string{
			"id":         hexID(e.ID),
			"added":      uintToString(e.AddedMicroUSD),
			"collateral": uintToString(e.CollateralMicroUSD),
			"dailyQuota": uintToString(e.DailyQuota),
			"reason":     e.Reason,
		},
	}
}
