package common

import "time"

// SecondsPerDay is the quota replenishment period. The throttle is keyed by
// day number rather than wall-clock timestamps so the lazy reset stays
// deterministic across hosts.
const SecondsPerDay = 86_400

// DayNumber maps a unix timestamp to its UTC day index. Timestamps before the
// epoch clamp to day zero.
func DayNumber(unix int64) uint64 {
	if unix <= 0 {
		return 0
	}
	return uint64(unix) / SecondsPerDay
}

// DayOf is a convenience wrapper over DayNumber for time.Time values.
func DayOf(t time.Time) uint64 {
	return DayNumber(t.Unix())
}
