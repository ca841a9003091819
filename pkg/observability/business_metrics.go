package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Payment collection metrics
	collectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "p2c_collections_total",
		Help: "Total number of P2C collection attempts",
	}, []string{
		"environment",  // production, test
		"status",       // authorized, declined, unreachable
		"gateway_code", // 00=approved, AG=account not registered, etc.
	})

	collectionAmount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "p2c_collection_amount_total",
		Help: "Total collected amount in bolivars (for revenue tracking)",
	}, []string{
		"environment",
		"status",
	})

	collectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "p2c_collection_duration_seconds",
		Help: "Total time to resolve a collection (pre-register through outcome)",
		// Buckets: 100ms to 60s (gateway conversations can run long with retries)
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{
		"environment",
		"status",
	})

	// Recovery metrics
	recoveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "p2c_recoveries_total",
		Help: "Total recovery queries for payments whose purchase outcome was unknown",
	}, []string{
		"environment",
		"resolution", // confirmed, declined, resent, abandoned, unresolved
	})
)

// RecordCollection records a resolved collection attempt
// This is the primary business metric for revenue tracking and approval rate calculation
func RecordCollection(environment, status, gatewayCode string, amount float64, duration float64) {
	collectionsTotal.WithLabelValues(environment, status, gatewayCode).Inc()

	// Only approved collections move money, but declined amounts are worth
	// tracking too for drop-off analysis
	collectionAmount.WithLabelValues(environment, status).Add(amount)

	collectionDuration.WithLabelValues(environment, status).Observe(duration)

	// Approval rate is calculated in PromQL, not stored directly:
	// sum(rate(p2c_collections_total{status="authorized"}[5m])) by (environment)
	// /
	// sum(rate(p2c_collections_total[5m])) by (environment)
}

// RecordRecovery records the resolution of a recovery query
func RecordRecovery(environment, resolution string) {
	recoveriesTotal.WithLabelValues(environment, resolution).Inc()
}
