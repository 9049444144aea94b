package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Operation metrics
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutover_operations_total",
			Help: "Total number of operations by kind and outcome",
		},
		[]string{"operation", "outcome"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cutover_operation_duration_seconds",
			Help:    "Operation duration in seconds by kind",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"operation"},
	)

	// Switch metrics
	SwitchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutover_switches_total",
			Help: "Total number of traffic switches by environment",
		},
		[]string{"environment"},
	)

	// Health wait metrics
	HealthWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cutover_health_wait_duration_seconds",
			Help:    "Time spent waiting for health quorum by environment",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"environment"},
	)

	HealthTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutover_health_timeouts_total",
			Help: "Health waits that expired without reaching quorum",
		},
		[]string{"environment", "lagging_signal"},
	)

	// Protection metrics
	ProtectionActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cutover_protection_active",
			Help: "Whether capacity protection is currently held (1) per environment",
		},
		[]string{"environment"},
	)

	AbortsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutover_aborts_total",
			Help: "Operations that went through the abort path",
		},
		[]string{"operation"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(OperationsTotal)
	prometheus.MustRegister(OperationDuration)
	prometheus.MustRegister(SwitchesTotal)
	prometheus.MustRegister(HealthWaitDuration)
	prometheus.MustRegister(HealthTimeouts)
	prometheus.MustRegister(ProtectionActive)
	prometheus.MustRegister(AbortsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
