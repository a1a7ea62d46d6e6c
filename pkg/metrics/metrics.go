// Package metrics provides the Prometheus collectors exposed alongside
// the gRPC and HTTP health listeners, adapted from the teacher's
// pkg/metrics/metrics.go (package-level vars registered once in init,
// a promhttp.Handler, and a Timer helper) to this daemon's own
// components: the resource engine, the resource registry, the
// auth/session layer, the audit log and the API layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Resource engine metrics (spec.md §4.4).
	EngineUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bffhd_engine_updates_total",
			Help: "Total number of accepted state transitions, by resource and event kind",
		},
		[]string{"resource", "kind"},
	)

	EngineDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bffhd_engine_denials_total",
			Help: "Total number of rejected proposals, by resource",
		},
		[]string{"resource"},
	)

	EngineInconsistentStoreTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bffhd_engine_inconsistent_store_total",
			Help: "Total number of detected store/in-memory state mismatches (spec.md §7 InconsistentStore)",
		},
	)

	// Resource status snapshot, periodically refreshed by Collector — a
	// live per-Subscription count isn't meaningful here (dropping a
	// Subscription is invisible to its Signal by design, see
	// pkg/signal's doc comment), so this tallies current resource
	// statuses instead, mirroring the teacher's collectNodeMetrics
	// role×status tally.
	ResourceStatusGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bffhd_resources_by_status",
			Help: "Current number of resources in each status kind",
		},
		[]string{"status"},
	)

	// Audit log metrics (spec.md §4.9).
	AuditWritesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bffhd_audit_writes_total",
			Help: "Total number of audit log entries written",
		},
	)

	AuditWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bffhd_audit_write_failures_total",
			Help: "Total number of audit log write failures (spec.md §7 AuditWriteFailure)",
		},
	)

	// Authentication metrics (spec.md §4.8).
	AuthSessionsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bffhd_auth_sessions_started_total",
			Help: "Total number of authentication sessions started, by mechanism",
		},
		[]string{"mechanism"},
	)

	AuthSessionsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bffhd_auth_sessions_failed_total",
			Help: "Total number of authentication sessions that ended Failed, by mechanism",
		},
		[]string{"mechanism"},
	)

	// API metrics.
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bffhd_api_requests_total",
			Help: "Total number of RPCs, by method and outcome",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bffhd_api_request_duration_seconds",
			Help:    "RPC handler duration in seconds, by method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(EngineUpdatesTotal)
	prometheus.MustRegister(EngineDenialsTotal)
	prometheus.MustRegister(EngineInconsistentStoreTotal)
	prometheus.MustRegister(ResourceStatusGauge)
	prometheus.MustRegister(AuditWritesTotal)
	prometheus.MustRegister(AuditWriteFailuresTotal)
	prometheus.MustRegister(AuthSessionsStartedTotal)
	prometheus.MustRegister(AuthSessionsFailedTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
