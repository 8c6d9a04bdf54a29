package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Query metrics
	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athena_queries_total",
			Help: "Total number of orchestrated queries",
		},
		[]string{"model", "task", "status"}, // status: success|error
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "athena_query_duration_seconds",
			Help:    "End-to-end query duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model", "task"},
	)

	// Selection metrics
	SelectionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athena_selection_outcomes_total",
			Help: "Auto-selection outcomes per task type",
		},
		[]string{"task", "outcome"}, // outcome: selected|no_candidates|retried
	)

	// Backend health metrics
	BackendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athena_backend_failures_total",
			Help: "Backend invocation failures",
		},
		[]string{"model", "transient"},
	)

	ModelHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "athena_model_health",
			Help: "Model health state (0=healthy, 1=degraded, 2=unavailable)",
		},
		[]string{"model"},
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(
		QueryTotal,
		QueryDuration,
		SelectionOutcomes,
		BackendFailures,
		ModelHealth,
	)
}

// RecordQuery records one completed query.
func RecordQuery(modelID, task, status string, duration time.Duration) {
	QueryTotal.WithLabelValues(modelID, task, status).Inc()
	QueryDuration.WithLabelValues(modelID, task).Observe(duration.Seconds())
}

// Handler returns the HTTP handler exposing the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
