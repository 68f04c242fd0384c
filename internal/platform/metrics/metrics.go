// Package metrics exposes Prometheus instruments for the platform service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus instruments. Construct once per process with
// New; promauto registers against the default registry.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	LoginsTotal       *prometheus.CounterVec
	RefreshesTotal    *prometheus.CounterVec
	ReuseDetections   prometheus.Counter
	InvitesAccepted   prometheus.Counter
	HousekeepingRuns  prometheus.Counter
	AuditEventsQueued prometheus.Counter
}

// New registers against the default registry. Call once per process.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers against the given registerer; tests pass a fresh
// prometheus.NewRegistry so parallel tests do not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewbase",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crewbase",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		LoginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewbase",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}), // outcome: ok, invalid_credentials, inactive
		RefreshesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewbase",
			Subsystem: "auth",
			Name:      "refreshes_total",
			Help:      "Refresh attempts by outcome.",
		}, []string{"outcome"}), // outcome: ok, rejected
		ReuseDetections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "crewbase",
			Subsystem: "auth",
			Name:      "refresh_reuse_detections_total",
			Help:      "Refresh token reuse detections (wide revocations triggered).",
		}),
		InvitesAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "crewbase",
			Subsystem: "invites",
			Name:      "accepted_total",
			Help:      "Invites accepted.",
		}),
		HousekeepingRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "crewbase",
			Subsystem: "housekeeping",
			Name:      "runs_total",
			Help:      "Completed housekeeping sweeps.",
		}),
		AuditEventsQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "crewbase",
			Subsystem: "audit",
			Name:      "events_queued_total",
			Help:      "Audit events handed to the sink.",
		}),
	}
}

// HTTPMiddleware records request counts and latency. Route is taken from the
// matched ServeMux pattern so path parameters do not explode cardinality.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
