package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway conversation metrics
	gatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p2c_gateway_requests_total",
			Help: "Total number of requests sent to the P2C gateway",
		},
		[]string{"environment", "operation", "outcome"},
	)

	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "p2c_gateway_request_duration_seconds",
			Help:    "Duration of P2C gateway conversations in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"environment", "operation"},
	)

	gatewayRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p2c_gateway_retries_total",
			Help: "Total number of retried gateway attempts",
		},
		[]string{"environment", "operation"},
	)

	gatewayRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "p2c_gateway_requests_in_flight",
			Help: "Number of gateway conversations currently in progress",
		},
	)
)

// GatewayTimer tracks one gateway conversation from first attempt to outcome
type GatewayTimer struct {
	environment string
	operation   string
	start       time.Time
}

// StartGatewayRequest marks the beginning of a gateway conversation
func StartGatewayRequest(environment, operation string) *GatewayTimer {
	gatewayRequestsInFlight.Inc()
	return &GatewayTimer{environment: environment, operation: operation, start: time.Now()}
}

// Retry records one retried attempt within the conversation
func (t *GatewayTimer) Retry() {
	gatewayRetriesTotal.WithLabelValues(t.environment, t.operation).Inc()
}

// Done records the conversation outcome ("sent" or "unreachable")
func (t *GatewayTimer) Done(outcome string) {
	gatewayRequestsInFlight.Dec()
	gatewayRequestDuration.WithLabelValues(t.environment, t.operation).Observe(time.Since(t.start).Seconds())
	gatewayRequestsTotal.WithLabelValues(t.environment, t.operation, outcome).Inc()
}
