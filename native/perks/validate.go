package perks

import (
	"alphapoints/native/partner"
)

// validateCreation runs the partner policy gates against a prospective
// definition. Gates fire in a fixed order so the first violated rule is
// the one reported: type, cost, revenue share, consumability, expiry,
// unique metadata, tags, claim limit, and finally the partner's perk budget.
func validateCreation(capability *partner.Capability, def *Definition) error {
	policy := capability.Policy

	allowed, blacklisted := policy.TypeAllowed(def.PerkType)
	if blacklisted {
		return ErrTypeBlacklisted
	}
	if !allowed {
		return ErrTypeNotAllowed
	}

	if policy.MaxCostPerPerk > 0 && def.CurrentPointsPrice > policy.MaxCostPerPerk {
		return ErrCostExceedsLimit
	}

	if def.Split.PartnerSharePct < policy.MinPartnerSharePct || def.Split.PartnerSharePct > policy.MaxPartnerSharePct {
		return ErrShareOutOfRange
	}

	if def.MaxUsesPerClaim != nil && !policy.AllowConsumablePerks {
		return ErrConsumablesDisabled
	}

	if def.ExpiresAt > 0 && !policy.AllowExpiringPerks {
		return ErrExpiringDisabled
	}

	if def.UniqueMetadata && !policy.AllowUniqueMetadata {
		return ErrUniqueMetadataDisabled
	}

	if len(def.Tags) > MaxTags {
		return ErrTooManyTags
	}
	for _, tag := range def.Tags {
		allowed, blacklisted := policy.TagAllowed(tag)
		if blacklisted {
			return ErrTagBlacklisted
		}
		if !allowed {
			return ErrTagNotAllowed
		}
	}

	if def.MaxClaims != nil && policy.MaxClaimsPerPerk > 0 && *def.MaxClaims > policy.MaxClaimsPerPerk {
		return ErrMaxClaimsExceedsLimit
	}

	if policy.MaxPerksPerPartner > 0 && capability.PerksCreated >= policy.MaxPerksPerPartner {
		return ErrPerkLimitReached
	}

	return nil
}
