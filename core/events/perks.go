package events

import "alphapoints/core/types"

const (
	TypePerkDefinitionCreated    = "perks.definition_created"
	TypePerkClaimed              = "perks.claimed"
	TypePerkPriceRefreshed       = "perks.price_refreshed"
	TypeClaimedPerkStatusUpdated = "perks.claim_status_updated"
)

// PerkDefinitionCreated is emitted when a partner publishes a catalog entry.
type PerkDefinitionCreated struct {
	ID          [32]byte
	Partner     [32]byte
	Name        string
	PerkType    string
	PointsPrice uint64
}

func (PerkDefinitionCreated) EventType() string { return TypePerkDefinitionCreated }

func (e PerkDefinitionCreated) Event() *types.Event {
	return &types.Event{
		Type: TypePerkDefinitionCreated,
		Attributes: map[string]string{
			"id":          hexID(e.ID),
			"partner":     hexID(e.Partner),
			"name":        e.Name,
			"perkType":    e.PerkType,
			"pointsPrice": uintToString(e.PointsPrice),
		},
	}
}

// PerkClaimed carries the full cost and both revenue shares for downstream
// analytics and auditing.
type PerkClaimed struct {
	ClaimID       [32]byte
	Definition    [32]byte
	Owner         [20]byte
	Cost          uint64
	PartnerShare  uint64
	PlatformShare uint64
	ClaimedAt     int64
}

func (PerkClaimed) EventType() string { return TypePerkClaimed }

func (e PerkClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypePerkClaimed,
		Attributes: map[string]string{
			"claimId":       hexID(e.ClaimID),
			"definition":    hexID(e.Definition),
			"owner":         hexAddr(e.Owner),
			"cost":          uintToString(e.Cost),
			"partnerShare":  uintToString(e.PartnerShare),
			"platformShare": uintToString(e.PlatformShare),
			"claimedAt":     intToString(e.ClaimedAt),
		},
	}
}

// PerkPriceRefreshed is emitted when a stale points price is recomputed from
// the USD anchor.
type PerkPriceRefreshed struct {
	Definition [32]byte
	OldPrice   uint64
	NewPrice   uint64
}

func (PerkPriceRefreshed) EventType() string { return TypePerkPriceRefreshed }

func (e PerkPriceRefreshed) Event() *types.Event {
	return &types.Event{
		Type: TypePerkPriceRefreshed,
		Attributes: map[string]string{
			"definition": hexID(e.Definition),
			"oldPrice":   uintToString(e.OldPrice),
			"newPrice":   uintToString(e.NewPrice),
		},
	}
}

// ClaimedPerkStatusUpdated is emitted on consumption calls and status flips.
type ClaimedPerkStatusUpdated struct {
	ClaimID       [32]byte
	Owner         [20]byte
	Status        string
	RemainingUses uint64
}

func (ClaimedPerkStatusUpdated) EventType() string { return TypeClaimedPerkStatusUpdated }

func (e ClaimedPerkStatusUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeClaimedPerkStatusUpdated,
		Attributes: map[string]string{
			"claimId":       hexID(e.ClaimID),
			"owner":         hexAddr(e.Owner),
			"status":        e.Status,
			"remainingUses": uintToString(e.RemainingUses),
		},
	}
}
