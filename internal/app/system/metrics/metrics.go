// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Technical metrics
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmausage_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	ResponseTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pharmausage_http_response_time_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"method", "route"})

	AssemblyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pharmausage_view_assembly_seconds",
		Help:    "Time spent assembling a dashboard view",
		Buckets: prometheus.DefBuckets,
	}, []string{"view"})

	AssemblyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmausage_view_assembly_failures_total",
		Help: "Dashboard view assemblies aborted by a fetch failure",
	}, []string{"view"})

	// Business metrics
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmausage_login_attempts_total",
		Help: "Sign-in attempts by outcome",
	}, []string{"outcome"})

	ResetEmails = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmausage_password_reset_emails_total",
		Help: "Password reset emails by outcome",
	}, []string{"outcome"})

	UsagePublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmausage_usage_publishes_total",
		Help: "MQTT usage summary publishes by outcome",
	}, []string{"outcome"})
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeLimited = "rate_limited"
)

// ObserveAssembly records how long a view took and whether it failed.
func ObserveAssembly(view string, start time.Time, err error) {
	AssemblyDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
	if err != nil {
		AssemblyFailures.WithLabelValues(view).Inc()
	}
}

// Middleware records request counts and latency keyed by the chi route
// pattern, so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		ResponseTime.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
