// Package metrics exposes Prometheus counters, gauges, and histograms
// for provider request outcomes, allocation decisions, and
// provisioning batches. Grounded on nitin2goyal-katalyst's
// internal/metrics/prometheus_exporter.go promauto usage — replaces
// the teacher's own hand-rolled atomic-counter/logarithmic-histogram
// exporter, which reinvented what github.com/prometheus/client_golang
// already does correctly (proper histogram buckets, a real /metrics
// text exposition format, label cardinality).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terradev_broker",
		Name:      "provider_requests_total",
		Help:      "Total calls made to a provider adapter through the Governor",
	}, []string{"provider", "operation"})

	ProviderFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terradev_broker",
		Name:      "provider_failures_total",
		Help:      "Total failed calls to a provider adapter",
	}, []string{"provider", "operation"})

	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "terradev_broker",
		Name:      "provider_request_duration_seconds",
		Help:      "Latency of provider adapter calls",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider", "operation"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "terradev_broker",
		Name:      "circuit_breaker_state",
		Help:      "Per-provider circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"provider"})

	QuotesReturnedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terradev_broker",
		Name:      "quotes_returned_total",
		Help:      "Total quotes returned by get_quotes calls, by provider",
	}, []string{"provider"})

	AllocationRelaxedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "terradev_broker",
		Name:      "allocation_relaxed_total",
		Help:      "Total allocate calls that had to engage the per-provider-cap relaxation pass",
	})

	ProvisionOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terradev_broker",
		Name:      "provision_outcomes_total",
		Help:      "Total provision outcomes by provider and status",
	}, []string{"provider", "status"})

	ProvisionBatchCostPerHour = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "terradev_broker",
		Name:      "provision_batch_cost_per_hour",
		Help:      "Total hourly cost of the most recent provision batch's active instances",
	})

	StagingBytesUploadedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terradev_broker",
		Name:      "staging_bytes_uploaded_total",
		Help:      "Total bytes uploaded per staging region",
	}, []string{"region", "status"})
)

// circuitStateValue maps the Governor's breaker state strings onto the
// gauge values Grafana dashboards conventionally expect.
func circuitStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// ObserveCircuitState records provider's current breaker state.
func ObserveCircuitState(provider, state string) {
	CircuitBreakerState.WithLabelValues(provider).Set(circuitStateValue(state))
}
