// Package metrics exposes the Prometheus collectors for the HTTP surface
// and the domain events worth graphing: sign-ins, denied requests, planning
// imports and maintenance runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "assogest",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Requests currently being served.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assogest",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Handled requests by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "assogest",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	presences = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assogest",
			Subsystem: "activite",
			Name:      "presences_total",
			Help:      "Total attendance sign-ins, by entry mode.",
		},
		[]string{"mode"},
	)

	permissionDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assogest",
			Subsystem: "rbac",
			Name:      "denials_total",
			Help:      "Requests rejected for a missing permission.",
		},
		[]string{"permission"},
	)

	planningSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assogest",
			Subsystem: "planning",
			Name:      "sync_runs_total",
			Help:      "Total planning feed imports.",
		},
		[]string{"success"},
	)

	planningSyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "assogest",
			Subsystem: "planning",
			Name:      "sync_duration_seconds",
			Help:      "Duration of planning feed imports.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	janitorRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assogest",
			Subsystem: "janitor",
			Name:      "runs_total",
			Help:      "Total maintenance runs.",
		},
		[]string{"success"},
	)

	janitorDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "assogest",
			Subsystem: "janitor",
			Name:      "run_duration_seconds",
			Help:      "Duration of maintenance runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		presences,
		permissionDenials,
		planningSyncs,
		planningSyncDuration,
		janitorRuns,
		janitorDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// IncInFlight marks one more request in flight.
func IncInFlight() { httpInFlight.Inc() }

// DecInFlight marks one request done.
func DecInFlight() { httpInFlight.Dec() }

// RecordHTTPRequest records one handled request. path should be the route
// template, not the raw URL, to keep the label cardinality bounded.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPresence counts one attendance sign-in.
func RecordPresence(mode string) {
	if mode == "" {
		mode = "manuel"
	}
	presences.WithLabelValues(mode).Inc()
}

// RecordPermissionDenial counts a request rejected by the permission check.
func RecordPermissionDenial(permission string) {
	if permission == "" {
		permission = "unknown"
	}
	permissionDenials.WithLabelValues(permission).Inc()
}

// RecordPlanningSync records one planning feed import.
func RecordPlanningSync(duration time.Duration, success bool) {
	planningSyncs.WithLabelValues(boolLabel(success)).Inc()
	planningSyncDuration.Observe(duration.Seconds())
}

// RecordJanitorRun records one maintenance run.
func RecordJanitorRun(duration time.Duration, success bool) {
	janitorRuns.WithLabelValues(boolLabel(success)).Inc()
	janitorDuration.Observe(duration.Seconds())
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
