package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convsvc_http_requests_total",
			Help: "HTTP requests handled, by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "convsvc_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Business metrics updated from the dispatch layer.
var (
	// ConversionsTotal counts finished conversions by kind and result.
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convsvc_conversions_total",
			Help: "Finished conversions by kind and result.",
		},
		[]string{"kind", "result"},
	)

	// ActiveJobs tracks background jobs between acceptance and terminal state.
	ActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "convsvc_active_jobs",
			Help: "Background jobs currently queued or processing.",
		},
	)

	// StagedBytes counts bytes written into the storage area by uploads.
	StagedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "convsvc_staged_bytes_total",
			Help: "Upload bytes staged into the storage area.",
		},
	)
)

// Metrics records request counts and latencies per route pattern. Route
// patterns keep label cardinality bounded; raw paths would explode on ids.
func Metrics(routePattern func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			route := routePattern(r)
			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
