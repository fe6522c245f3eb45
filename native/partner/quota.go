package partner

import (
	"math"

	nativecommon "alphapoints/native/common"
	"alphapoints/native/oracle"
)

// LifetimeQuotaDays sizes the lifetime sustainability cap relative to the
// daily throttle: collateral backs one year of full-rate issuance before a
// top-up is required.
const LifetimeQuotaDays = 365

// ComputeDailyQuota derives the per-day mint allowance from the collateral
// valuation using the fixed protocol points-per-USD anchor.
func ComputeDailyQuota(collateralMicroUSD uint64) (uint64, error) {
	return oracle.ConvertMicroUSDToPoints(collateralMicroUSD)
}

// ComputeLifetimeQuota derives the lifetime cap from the daily quota,
// saturating instead of wrapping for very large collateral values.
func ComputeLifetimeQuota(dailyQuota uint64) uint64 {
	lifetime, err := nativecommon.MulU64(dailyQuota, LifetimeQuotaDays)
	if err != nil {
		return math.MaxUint64
	}
	return lifetime
}

// ResetDailyIfNeeded replenishes the daily throttle when the current day has
// advanced past the last recorded reset. The reset is lazy and pull-based;
// calling it twice within the same day is a no-op the second time. Reports
// whether a reset happened.
func (c *Capability) ResetDailyIfNeeded(day uint64) bool {
	if c == nil || day <= c.LastEpochReset {
		return false
	}
	c.MintRemainingToday = c.DailyQuota
	c.LastEpochReset = day
	return true
}

// ValidateAndDecrement checks that the capability can absorb the requested
// mint and consumes that much of today's throttle. The caller must have run
// the lazy reset for the current day first. The remaining counter never goes
// negative and never exceeds DailyQuota.
func (c *Capability) ValidateAndDecrement(points uint64) error {
	if c == nil {
		return ErrCapabilityNotFound
	}
	if points == 0 {
		return nil
	}
	if c.Paused {
		return ErrCapabilityPaused
	}
	if points > c.MintRemainingToday {
		return ErrDailyQuotaExceeded
	}
	lifetime, err := nativecommon.AddU64(c.LifetimeMinted, points)
	if err != nil || lifetime > c.LifetimeQuota {
		return ErrLifetimeQuotaExceeded
	}
	c.MintRemainingToday -= points
	return nil
}

// RecordMinted advances the lifetime-minted counter used for sustainability
// accounting. Saturates rather than wraps.
func (c *Capability) RecordMinted(points uint64) {
	if c == nil {
		return
	}
	total, err := nativecommon.AddU64(c.LifetimeMinted, points)
	if err != nil {
		total = math.MaxUint64
	}
	c.LifetimeMinted = total
}
