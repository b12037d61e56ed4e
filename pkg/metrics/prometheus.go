// Package metrics provides Prometheus metrics for the encore ranking service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  *prometheus.Registry

	// Core business metrics.
	votesApplied   prometheus.Counter
	votesDuplicate prometheus.Counter
	votesRejected  *prometheus.CounterVec

	// Session lifecycle.
	sessionsOpened    prometheus.Counter
	sessionsSkipped   prometheus.Counter
	sessionsCompleted prometheus.Counter
	sessionsCancelled prometheus.Counter
	sessionsErrored   prometheus.Counter
	sessionsActive    prometheus.Gauge

	// Operational health.
	queueBuildLatency  prometheus.Histogram
	voteCommitLatency  prometheus.Histogram
	casConflicts       prometheus.Counter
	transientRetries   *prometheus.CounterVec
	setsLogged         prometheus.Counter
	dedupeCacheEntries prometheus.Gauge

	// HTTP performance.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance, backed by a custom registry so the
// default Go collectors do not pollute the scrape.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager()
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "encore",
		subsystem: "ranking",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.votesApplied = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "votes_applied_total",
		Help: "Comparison votes committed with both rating updates.",
	})
	m.votesDuplicate = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "votes_duplicate_total",
		Help: "Votes reconciled as duplicates without re-applying the delta.",
	})
	m.votesRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "votes_rejected_total",
		Help: "Votes rejected before commit, by error kind.",
	}, []string{"kind"})

	m.sessionsOpened = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_opened_total",
		Help: "Ranking sessions opened with a non-empty queue.",
	})
	m.sessionsSkipped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_skipped_total",
		Help: "Open calls that skipped because nothing was comparable.",
	})
	m.sessionsCompleted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_completed_total",
		Help: "Sessions that exhausted their opponent queue.",
	})
	m.sessionsCancelled = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_cancelled_total",
		Help: "Sessions cancelled by the user before completion.",
	})
	m.sessionsErrored = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_errored_total",
		Help: "Sessions aborted by a persistence failure.",
	})
	m.sessionsActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_active",
		Help: "Currently active ranking sessions.",
	})

	m.queueBuildLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "queue_build_duration_seconds",
		Help:    "Latency of opponent queue construction.",
		Buckets: m.buckets,
	})
	m.voteCommitLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "vote_commit_duration_seconds",
		Help:    "Latency of the transactional vote commit.",
		Buckets: m.buckets,
	})
	m.casConflicts = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rating_cas_conflicts_total",
		Help: "Rating compare-and-swap writes lost to a concurrent vote.",
	})
	m.transientRetries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "transient_retries_total",
		Help: "Internal retries of transient persistence failures.",
	}, []string{"step"})
	m.setsLogged = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sets_logged_total",
		Help: "Sets accepted through the logging endpoint.",
	})
	m.dedupeCacheEntries = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "dedupe_cache_entries",
		Help: "Vote idempotency keys currently cached.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "requests_total",
		Help: "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name:    "request_duration_seconds",
		Help:    "HTTP request latency by endpoint, method and status.",
		Buckets: m.buckets,
	}, []string{"endpoint", "method", "status"})
}

// Handler returns the scrape handler for the manager's registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package-level helpers over the global manager.

func RecordVoteApplied()           { globalManager.votesApplied.Inc() }
func RecordVoteDuplicate()         { globalManager.votesDuplicate.Inc() }
func RecordVoteRejected(kind string) {
	globalManager.votesRejected.WithLabelValues(kind).Inc()
}

func RecordSessionOpened()    { globalManager.sessionsOpened.Inc() }
func RecordSessionSkipped()   { globalManager.sessionsSkipped.Inc() }
func RecordSessionCompleted() { globalManager.sessionsCompleted.Inc() }
func RecordSessionCancelled() { globalManager.sessionsCancelled.Inc() }
func RecordSessionErrored()   { globalManager.sessionsErrored.Inc() }
func UpdateActiveSessions(n int) {
	globalManager.sessionsActive.Set(float64(n))
}

func ObserveQueueBuild(seconds float64) { globalManager.queueBuildLatency.Observe(seconds) }
func ObserveVoteCommit(seconds float64) { globalManager.voteCommitLatency.Observe(seconds) }
func RecordCASConflict()                { globalManager.casConflicts.Inc() }
func RecordTransientRetry(step string) {
	globalManager.transientRetries.WithLabelValues(step).Inc()
}
func RecordSetLogged() { globalManager.setsLogged.Inc() }
func UpdateDedupeCacheEntries(n int64) {
	globalManager.dedupeCacheEntries.Set(float64(n))
}

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(seconds)
}

// Handler exposes the global manager's scrape handler.
func Handler() http.Handler { return globalManager.Handler() }
