package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Deployment-specific metric collectors.
var (
	serviceInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cloudrun_deployer_service_info",
			Help: "Info-style metric for managed service discovery and phase tracking. Always 1.",
		},
		[]string{"service", "region", "phase"},
	)

	operationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudrun_deployer_operation_total",
			Help: "Total number of lifecycle operations by result.",
		},
		[]string{"operation", "role", "result"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "cloudrun_deployer_operation_duration_seconds",
			Help: "Latency of lifecycle operations in seconds, including reconciliation waits.",
			// Deploys routinely take minutes.
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"operation", "role"},
	)

	pollTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudrun_deployer_poll_total",
			Help: "Total number of reconciliation polls by outcome.",
		},
		[]string{"service", "outcome"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		serviceInfo,
		operationTotal,
		operationDuration,
		pollTotal,
	)
}

// Collectors returns all registered metric collectors. This is useful for
// testing that metrics are properly registered.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		serviceInfo,
		operationTotal,
		operationDuration,
		pollTotal,
	}
}
