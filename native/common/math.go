package common

import (
	"errors"
	"math"
)

var (
	// ErrAddOverflow indicates a uint64 addition would wrap.
	ErrAddOverflow = errors.New("checked add overflow")
	// ErrSubUnderflow indicates a uint64 subtraction would go negative.
	ErrSubUnderflow = errors.New("checked sub underflow")
	// ErrMulOverflow indicates a uint64 multiplication would wrap.
	ErrMulOverflow = errors.New("checked mul overflow")
)

// AddU64 returns a+b or ErrAddOverflow when the sum does not fit in 64 bits.
// Every balance, supply and quota mutation in the core goes through these
// helpers; wrapping here would mint points from nothing.
func AddU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrAddOverflow
	}
	return a + b, nil
}

// SubU64 returns a-b or ErrSubUnderflow when b exceeds a.
func SubU64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrSubUnderflow
	}
	return a - b, nil
}

// MulU64 returns a*b or ErrMulOverflow when the product does not fit.
func MulU64(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxUint64/b {
		return 0, ErrMulOverflow
	}
	return a * b, nil
}
