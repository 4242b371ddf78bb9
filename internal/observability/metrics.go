package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_generations_total",
			Help: "Query generation outcomes by terminal state.",
		},
		[]string{"outcome"},
	)
)

// RecordGeneration counts one finished pipeline run. Outcome is one of
// executed, rejected, generation_failed, execution_failed, schema_failed,
// connection_failed.
func RecordGeneration(outcome string) {
	generationsTotal.WithLabelValues(outcome).Inc()
}

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds, generationsTotal)
}
