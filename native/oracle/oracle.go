package oracle

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	// ErrStale indicates the freshest available quote exceeded the configured
	// age window. Stale rates are a hard failure for financial operations,
	// never a silent fallback.
	ErrStale = errors.New("oracle: rate stale")
	// ErrZeroRate indicates the source reported a zero or missing rate.
	ErrZeroRate = errors.New("oracle: zero rate")
	// ErrNoSource indicates the oracle has no configured rate source.
	ErrNoSource = errors.New("oracle: no source configured")
)

// RateQuote captures an asset<->points exchange rate observation. Rate is the
// number of points per asset unit scaled by 10^Decimals.
type RateQuote struct {
	Rate      uint64
	Decimals  uint8
	Timestamp time.Time
	Source    string
}

// Source resolves the current exchange rate from an upstream feed.
type Source interface {
	GetRate() (RateQuote, error)
}

// Oracle wraps a Source with a freshness window. Every conversion consumed by
// the accounting core goes through GetRate, which rejects stale observations.
type Oracle struct {
	mu     sync.RWMutex
	source Source
	maxAge time.Duration
	nowFn  func() time.Time
}

// New constructs an oracle over the provided source. A zero maxAge disables
// the staleness check, which is only appropriate in tests.
func New(source Source, maxAge time.Duration) *Oracle {
	return &Oracle{
		source: source,
		maxAge: maxAge,
		nowFn:  time.Now,
	}
}

// SetClock overrides the time source, primarily for deterministic testing.
func (o *Oracle) SetClock(now func() time.Time) {
	if o == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if now == nil {
		o.nowFn = time.Now
		return
	}
	o.nowFn = now
}

// SetMaxAge updates the freshness window.
func (o *Oracle) SetMaxAge(maxAge time.Duration) {
	if o == nil {
		return
	}
	o.mu.Lock()
	o.maxAge = maxAge
	o.mu.Unlock()
}

func (o *Oracle) now() time.Time {
	o.mu.RLock()
	nowFn := o.nowFn
	o.mu.RUnlock()
	if nowFn == nil {
		return time.Now()
	}
	return nowFn()
}

// GetRate returns the current quote, failing with ErrStale when the quote is
// older than the freshness window and ErrZeroRate when the source reports an
// unusable rate.
func (o *Oracle) GetRate() (RateQuote, error) {
	if o == nil || o.source == nil {
		return RateQuote{}, ErrNoSource
	}
	quote, err := o.source.GetRate()
	if err != nil {
		return RateQuote{}, err
	}
	if quote.Rate == 0 {
		return RateQuote{}, ErrZeroRate
	}
	o.mu.RLock()
	maxAge := o.maxAge
	o.mu.RUnlock()
	if maxAge > 0 {
		if quote.Timestamp.IsZero() {
			return RateQuote{}, fmt.Errorf("%w: quote missing timestamp", ErrStale)
		}
		if o.now().Sub(quote.Timestamp) > maxAge {
			return RateQuote{}, ErrStale
		}
	}
	return quote, nil
}

// IsStale reports whether the source's current observation would be rejected
// at the supplied time.
func (o *Oracle) IsStale(now time.Time) bool {
	if o == nil || o.source == nil {
		return true
	}
	quote, err := o.source.GetRate()
	if err != nil || quote.Rate == 0 {
		return true
	}
	o.mu.RLock()
	maxAge := o.maxAge
	o.mu.RUnlock()
	if maxAge <= 0 {
		return false
	}
	if quote.Timestamp.IsZero() {
		return true
	}
	return now.Sub(quote.Timestamp) > maxAge
}

// StaticSource serves a fixed quote; tests and seeded local deployments use
// it in place of a live feed.
type StaticSource struct {
	mu    sync.RWMutex
	quote RateQuote
}

// NewStaticSource builds a source pinned to the provided quote.
func NewStaticSource(quote RateQuote) *StaticSource {
	if strings.TrimSpace(quote.Source) == "" {
		quote.Source = "static"
	}
	return &StaticSource{quote: quote}
}

// Update replaces the served quote.
func (s *StaticSource) Update(quote RateQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(quote.Source) == "" {
		quote.Source = "static"
	}
	s.quote = quote
}

// GetRate implements Source.
func (s *StaticSource) GetRate() (RateQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quote, nil
}
