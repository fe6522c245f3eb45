package partner

import "errors"

var (
	ErrNilState              = errors.New("partner: state not configured")
	ErrCapabilityNotFound    = errors.New("partner: capability not found")
	ErrCapabilityPaused      = errors.New("partner: capability paused")
	ErrUnauthorized          = errors.New("partner: unauthorized")
	ErrInvalidName           = errors.New("partner: name required")
	ErrZeroCollateral        = errors.New("partner: collateral value must be positive")
	ErrDailyQuotaExceeded    = errors.New("partner: daily quota exceeded")
	ErrLifetimeQuotaExceeded = errors.New("partner: lifetime quota exceeded")
	ErrInvalidPolicy         = errors.New("partner: invalid policy")
)
