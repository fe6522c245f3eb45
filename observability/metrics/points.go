package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PointsMetrics tracks the accounting engine's hot paths: mints, burns,
// claims and quota rejections.
type PointsMetrics struct {
	earned        prometheus.Counter
	spent         prometheus.Counter
	claims        *prometheus.CounterVec
	quotaRejected *prometheus.CounterVec
	supply        prometheus.Gauge
	oracleErrors  *prometheus.CounterVec
}

var (
	pointsOnce     sync.Once
	pointsRegistry *PointsMetrics
)

// Points returns the lazily-initialised points metrics registry.
func Points() *PointsMetrics {
	pointsOnce.Do(func() {
		pointsRegistry = &PointsMetrics{
			earned: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "alphapoints",
				Name:      "points_earned_total",
				Help:      "Total points minted into user balances.",
			}),
			spent: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "alphapoints",
				Name:      "points_spent_total",
				Help:      "Total points burned out of user balances.",
			}),
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "alphapoints",
				Name:      "perk_claims_total",
				Help:      "Perk claim attempts segmented by outcome.",
			}, []string{"outcome"}),
			quotaRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "alphapoints",
				Name:      "quota_rejections_total",
				Help:      "Partner quota rejections segmented by kind.",
			}, []string{"kind"}),
			supply: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "alphapoints",
				Name:      "supply",
				Help:      "Current global points supply.",
			}),
			oracleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "alphapoints",
				Name:      "oracle_errors_total",
				Help:      "Oracle failures segmented by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			pointsRegistry.earned,
			pointsRegistry.spent,
			pointsRegistry.claims,
			pointsRegistry.quotaRejected,
			pointsRegistry.supply,
			pointsRegistry.oracleErrors,
		)
	})
	return pointsRegistry
}

// ObserveEarned records a successful mint.
func (m *PointsMetrics) ObserveEarned(amount uint64) {
	if m == nil {
		return
	}
	m.earned.Add(float64(amount))
}

// ObserveSpent records a successful burn.
func (m *PointsMetrics) ObserveSpent(amount uint64) {
	if m == nil {
		return
	}
	m.spent.Add(float64(amount))
}

// ObserveClaim records a claim attempt by outcome, e.g. "ok" or "rejected".
func (m *PointsMetrics) ObserveClaim(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.claims.WithLabelValues(outcome).Inc()
}

// ObserveQuotaRejection records a quota rejection by kind, "daily" or
// "lifetime".
func (m *PointsMetrics) ObserveQuotaRejection(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.quotaRejected.WithLabelValues(kind).Inc()
}

// SetSupply publishes the current global supply.
func (m *PointsMetrics) SetSupply(supply uint64) {
	if m == nil {
		return
	}
	m.supply.Set(float64(supply))
}

// ObserveOracleError records an oracle failure by reason.
func (m *PointsMetrics) ObserveOracleError(reason string) {
	if m == nil {
		return
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	m.oracleErrors.WithLabelValues(reason).Inc()
}
