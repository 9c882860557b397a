package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the close backend.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	externalErrors   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	migrationRuns    *prometheus.CounterVec
	recordsMigrated  prometheus.Counter
	recordsCollapsed prometheus.Counter
	snapshotBuilds   prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cierre_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cierre_external_errors_total",
				Help: "Total errors from external stores.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cierre_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cierre_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		migrationRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cierre_migration_runs_total",
				Help: "Total legacy consolidation runs by outcome.",
			},
			[]string{"outcome"},
		),
		recordsMigrated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cierre_records_migrated_total",
				Help: "Canonical records written by consolidation runs.",
			},
		),
		recordsCollapsed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cierre_records_collapsed_total",
				Help: "Duplicate records collapsed during consolidation.",
			},
		),
		snapshotBuilds: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cierre_snapshot_builds_total",
				Help: "Monthly snapshots computed.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrMigrationRun increments the migration run counter with an outcome
// label ("success", "failed" or "skipped").
func (m *Metrics) IncrMigrationRun(outcome string) {
	m.migrationRuns.WithLabelValues(outcome).Inc()
}

// AddRecordsMigrated records how many canonical records a run wrote.
func (m *Metrics) AddRecordsMigrated(n int) {
	m.recordsMigrated.Add(float64(n))
}

// AddRecordsCollapsed records how many duplicates a run collapsed.
func (m *Metrics) AddRecordsCollapsed(n int) {
	m.recordsCollapsed.Add(float64(n))
}

// IncrSnapshotBuild counts one monthly snapshot computation.
func (m *Metrics) IncrSnapshotBuild() {
	m.snapshotBuilds.Inc()
}

// MigrationCounts returns the cumulative run counters, used by the
// GET /v1/migration/status endpoint to enrich its response.
func (m *Metrics) MigrationCounts() (success, failed, skipped float64) {
	return getCounterValue(m.migrationRuns, "success"),
		getCounterValue(m.migrationRuns, "failed"),
		getCounterValue(m.migrationRuns, "skipped")
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
