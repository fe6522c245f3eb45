package partner

// CapabilityID uniquely identifies a partner capability. It is computed as
// keccak256(owner || name || counter) so identifiers stay deterministic
// without coordination.
type CapabilityID [32]byte

// Policy is the perk-control sub-record carried by every capability. All
// checks against it are pure validation with no side effects.
type Policy struct {
	MaxPerksPerPartner   uint64   `json:"maxPerksPerPartner"`
	MaxClaimsPerPerk     uint64   `json:"maxClaimsPerPerk"`
	MaxCostPerPerk       uint64   `json:"maxCostPerPerk"`
	MinPartnerSharePct   uint8    `json:"minPartnerSharePct"`
	MaxPartnerSharePct   uint8    `json:"maxPartnerSharePct"`
	AllowConsumablePerks bool     `json:"allowConsumablePerks"`
	AllowExpiringPerks   bool     `json:"allowExpiringPerks"`
	AllowUniqueMetadata  bool     `json:"allowUniqueMetadata"`
	AllowedPerkTypes     []string `json:"allowedPerkTypes,omitempty"`
	BlacklistedPerkTypes []string `json:"blacklistedPerkTypes,omitempty"`
	AllowedTags          []string `json:"allowedTags,omitempty"`
	BlacklistedTags      []string `json:"blacklistedTags,omitempty"`
}

// DefaultPolicy returns the policy applied to freshly created capabilities.
// Empty allow-lists mean "allow all"; partners tighten from here.
func DefaultPolicy() Policy {
	return Policy{
		MaxPerksPerPartner:   100,
		MaxClaimsPerPerk:     10_000,
		MaxCostPerPerk:       1_000_000,
		MinPartnerSharePct:   0,
		MaxPartnerSharePct:   90,
		AllowConsumablePerks: true,
		AllowExpiringPerks:   true,
		AllowUniqueMetadata:  false,
	}
}

// Validate rejects policies with inverted share bounds or shares above 100.
func (p Policy) Validate() error {
	if p.MaxPartnerSharePct > 100 {
		return ErrInvalidPolicy
	}
	if p.MinPartnerSharePct > p.MaxPartnerSharePct {
		return ErrInvalidPolicy
	}
	return nil
}

// TypeAllowed applies the allow/deny perk-type lists. An empty allow-list
// admits every type; the deny-list always wins.
func (p Policy) TypeAllowed(perkType string) (allowed, blacklisted bool) {
	for _, denied := range p.BlacklistedPerkTypes {
		if denied == perkType {
			return false, true
		}
	}
	if len(p.AllowedPerkTypes) == 0 {
		return true, false
	}
	for _, wanted := range p.AllowedPerkTypes {
		if wanted == perkType {
			return true, false
		}
	}
	return false, false
}

// TagAllowed applies the allow/deny tag lists with the same semantics as
// TypeAllowed.
func (p Policy) TagAllowed(tag string) (allowed, blacklisted bool) {
	for _, denied := range p.BlacklistedTags {
		if denied == tag {
			return false, true
		}
	}
	if len(p.AllowedTags) == 0 {
		return true, false
	}
	for _, wanted := range p.AllowedTags {
		if wanted == tag {
			return true, false
		}
	}
	return false, false
}

// Capability is the per-partner authorization and quota object. Holding the
// record (via its owner address) is what lets a partner cause point issuance.
type Capability struct {
	ID                 CapabilityID `json:"id"`
	Owner              [20]byte     `json:"owner"`
	Name               string       `json:"name"`
	Paused             bool         `json:"paused"`
	CollateralMicroUSD uint64       `json:"collateralMicroUsd"`
	DailyQuota         uint64       `json:"dailyQuota"`
	MintRemainingToday uint64       `json:"mintRemainingToday"`
	LastEpochReset     uint64       `json:"lastEpochReset"`
	LifetimeQuota      uint64       `json:"lifetimeQuota"`
	LifetimeMinted     uint64       `json:"lifetimeMinted"`
	PerksCreated       uint64       `json:"perksCreated"`
	ReinvestPct        uint8        `json:"reinvestPct"`
	Policy             Policy       `json:"policy"`
}

// Clone returns a deep copy so callers can mutate freely before persisting.
func (c *Capability) Clone() *Capability {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Policy.AllowedPerkTypes = append([]string(nil), c.Policy.AllowedPerkTypes...)
	clone.Policy.BlacklistedPerkTypes = append([]string(nil), c.Policy.BlacklistedPerkTypes...)
	clone.Policy.AllowedTags = append([]string(nil), c.Policy.AllowedTags...)
	clone.Policy.BlacklistedTags = append([]string(nil), c.Policy.BlacklistedTags...)
	return &clone
}
