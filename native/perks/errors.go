package perks

import "errors"

var (
	ErrNilState = errors.New("perks: state not configured")

	// Creation gate errors, one per violated rule so callers can surface an
	// actionable message.
	ErrTypeNotAllowed         = errors.New("perks: perk type not allowed")
	ErrTypeBlacklisted        = errors.New("perks: perk type blacklisted")
	ErrCostExceedsLimit       = errors.New("perks: cost exceeds partner limit")
	ErrShareOutOfRange        = errors.New("perks: revenue share out of range")
	ErrConsumablesDisabled    = errors.New("perks: consumable perks disabled")
	ErrExpiringDisabled       = errors.New("perks: expiring perks disabled")
	ErrUniqueMetadataDisabled = errors.New("perks: unique metadata disabled")
	ErrTagNotAllowed          = errors.New("perks: tag not allowed")
	ErrTagBlacklisted         = errors.New("perks: tag blacklisted")
	ErrTooManyTags            = errors.New("perks: too many tags")
	ErrMaxClaimsExceedsLimit  = errors.New("perks: max claims exceeds partner limit")
	ErrPerkLimitReached       = errors.New("perks: partner perk limit reached")
	ErrInvalidDefinition      = errors.New("perks: invalid definition")

	// Claim and consumption state errors.
	ErrPerkNotFound          = errors.New("perks: definition not found")
	ErrPerkNotActive         = errors.New("perks: definition not active")
	ErrPerkExpired           = errors.New("perks: definition expired")
	ErrMaxClaimsReached      = errors.New("perks: max claims reached")
	ErrAlreadyClaimedTooSoon = errors.New("perks: claimed again too soon")
	ErrNotPerkCreator        = errors.New("perks: caller is not the perk creator")
	ErrClaimNotFound         = errors.New("perks: claim not found")
	ErrWrongPerkDefinition   = errors.New("perks: claim belongs to a different definition")
	ErrNotClaimOwner         = errors.New("perks: caller does not own the claim")
	ErrNotConsumable         = errors.New("perks: claim is not consumable")
	ErrMaxUsesReached        = errors.New("perks: max uses reached")
)
