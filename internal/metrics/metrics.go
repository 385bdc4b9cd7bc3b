package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts all HTTP requests with labels.
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds.
	RequestDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	// PropagationSweepDuration records labor-rate propagation sweep duration.
	PropagationSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricing_propagation_sweep_duration_seconds",
			Help:    "Duration of labor-rate propagation sweeps in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PropagationEntriesWritten counts history entries written by sweeps.
	PropagationEntriesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_propagation_entries_total",
			Help: "Total pricing history entries written by propagation sweeps",
		},
	)
)

// HTTPMetrics records request metrics for one named service.
type HTTPMetrics struct {
	ServiceName string
}

func NewHTTPMetrics(serviceName string) *HTTPMetrics {
	return &HTTPMetrics{ServiceName: serviceName}
}

// Middleware records a counter increment and a duration observation per
// request. Path labels use the routing pattern, not the raw URL, so label
// cardinality stays bounded; callers pass a pattern extractor for that.
func (m *HTTPMetrics) Middleware(pattern func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			path := pattern(r)
			statusStr := strconv.Itoa(rec.status)
			RequestCounter.WithLabelValues(m.ServiceName, r.Method, path, statusStr).Inc()
			RequestDurationHistogram.WithLabelValues(m.ServiceName, r.Method, path, statusStr).
				Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
