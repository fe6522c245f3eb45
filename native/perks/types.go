package perks

import "alphapoints/native/partner"

// Claim lifecycle states.
const (
	StatusActive        = "ACTIVE"
	StatusFullyConsumed = "FULLY_CONSUMED"
)

// MaxTags bounds the tag list carried by a definition.
const MaxTags = 5

// RevenueSplit describes how the points spent on a claim are divided
// between the issuing partner and the platform. PartnerSharePct is the
// partner's cut in whole percent; the platform receives the remainder so
// the two legs always sum to the full price.
type RevenueSplit struct {
	PartnerSharePct uint8    `json:"partnerSharePct"`
	PartnerPayout   [20]byte `json:"partnerPayout"`
	PlatformPayout  [20]byte `json:"platformPayout"`
}

// Definition is a claimable perk template published by a partner.
type Definition struct {
	ID      [32]byte             `json:"id"`
	Creator partner.CapabilityID `json:"creator"`

	Name        string   `json:"name"`
	Description string   `json:"description"`
	PerkType    string   `json:"perkType"`
	Tags        []string `json:"tags,omitempty"`

	// USDPriceMicro anchors the price in micro-USD; CurrentPointsPrice is
	// the cached conversion refreshed from the oracle when it goes stale.
	USDPriceMicro      uint64 `json:"usdPriceMicro"`
	CurrentPointsPrice uint64 `json:"currentPointsPrice"`
	LastPriceUpdate    int64  `json:"lastPriceUpdate"`

	Split RevenueSplit `json:"split"`

	// MaxClaims of nil means unlimited.
	MaxClaims   *uint64 `json:"maxClaims,omitempty"`
	TotalClaims uint64  `json:"totalClaims"`

	// MaxUsesPerClaim of nil means the perk is not consumable; claims of a
	// consumable perk start with this many uses.
	MaxUsesPerClaim *uint64 `json:"maxUsesPerClaim,omitempty"`

	// ExpiresAt of zero means the definition never expires.
	ExpiresAt int64 `json:"expiresAt,omitempty"`

	// CooldownSeconds of zero means a user may claim back to back.
	CooldownSeconds uint64 `json:"cooldownSeconds,omitempty"`

	UniqueMetadata bool `json:"uniqueMetadata"`
	Active         bool `json:"active"`
}

// Expired reports whether the definition has passed its expiry at the
// supplied unix time.
func (d *Definition) Expired(now int64) bool {
	return d.ExpiresAt > 0 && now >= d.ExpiresAt
}

// Clone returns a deep copy safe for callers to mutate.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	copied := *d
	if d.Tags != nil {
		copied.Tags = append([]string(nil), d.Tags...)
	}
	if d.MaxClaims != nil {
		v := *d.MaxClaims
		copied.MaxClaims = &v
	}
	if d.MaxUsesPerClaim != nil {
		v := *d.MaxUsesPerClaim
		copied.MaxUsesPerClaim = &v
	}
	return &copied
}

// Claim records a user's ownership of a perk instance.
type Claim struct {
	ID         [32]byte `json:"id"`
	Definition [32]byte `json:"definition"`
	Owner      [20]byte `json:"owner"`
	ClaimedAt  int64    `json:"claimedAt"`
	Status     string   `json:"status"`

	// RemainingUses of nil means the claim is not consumable.
	RemainingUses *uint64 `json:"remainingUses,omitempty"`

	// MetadataID is zero unless the definition mints unique metadata.
	MetadataID [32]byte `json:"metadataId,omitempty"`
}

// Clone returns a deep copy safe for callers to mutate.
func (c *Claim) Clone() *Claim {
	if c == nil {
		return nil
	}
	copied := *c
	if c.RemainingUses != nil {
		v := *c.RemainingUses
		copied.RemainingUses = &v
	}
	return &copied
}

// Metadata is the per-claim unique record minted for definitions that
// request one.
type Metadata struct {
	ID         [32]byte          `json:"id"`
	Definition [32]byte          `json:"definition"`
	Claim      [32]byte          `json:"claim"`
	CreatedAt  int64             `json:"createdAt"`
	Attributes map[string]string `json:"attributes,omitempty"`
}
