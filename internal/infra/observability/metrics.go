package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

// analyticsStages are the memoized computations reported by the snapshot.
var analyticsStages = []string{"metrics", "unified_activities", "performance", "plan", "home", "pipeline"}

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	externalErrors   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	analyticsHits    *prometheus.CounterVec
	analyticsMisses  *prometheus.CounterVec
	workspacesLoaded prometheus.Gauge
	jobRuns          *prometheus.CounterVec
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
				Name:    "crm_request_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_external_errors_total",
				Help: "Total errors from backends and third-party APIs.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_cache_hits_total",
				Help: "Total TTL cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_cache_misses_total",
				Help: "Total TTL cache misses.",
			},
			[]string{"cache"},
		),
		analyticsHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_analytics_cache_hits_total",
				Help: "Memoized analytics served without recomputation.",
			},
			[]string{"stage"},
		),
		analyticsMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_analytics_recomputations_total",
				Help: "Analytics stages recomputed after a miss.",
			},
			[]string{"stage"},
		),
		workspacesLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "crm_workspaces_loaded",
				Help: "Agent workspaces held in memory.",
			},
		),
		jobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_scheduled_job_runs_total",
				Help: "Scheduled job runs by job and outcome.",
			},
			[]string{"job", "status"},
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

// CacheHit counts a memoized analytics lookup; Metrics is an
// analytics.Observer.
func (m *Metrics) CacheHit(stage string) {
	m.analyticsHits.WithLabelValues(stage).Inc()
}

// CacheMiss counts an analytics recomputation.
func (m *Metrics) CacheMiss(stage string) {
	m.analyticsMisses.WithLabelValues(stage).Inc()
}

// SetWorkspacesLoaded records how many agent workspaces are in memory.
func (m *Metrics) SetWorkspacesLoaded(n int) {
	m.workspacesLoaded.Set(float64(n))
}

// IncrJobRun counts one scheduled job run.
func (m *Metrics) IncrJobRun(job, status string) {
	m.jobRuns.WithLabelValues(job, status).Inc()
}

// GetAnalyticsSnapshot returns the analytics cache counters for the
// GET /v1/metrics/analytics endpoint.
func (m *Metrics) GetAnalyticsSnapshot() *domain.AnalyticsCacheStats {
	stats := &domain.AnalyticsCacheStats{
		Stages: make([]domain.StageCacheStats, 0, len(analyticsStages)),
		Period: "since_start",
	}
	var hits, misses float64
	for _, stage := range analyticsStages {
		h := getCounterValue(m.analyticsHits, stage)
		ms := getCounterValue(m.analyticsMisses, stage)
		hits += h
		misses += ms
		stats.Stages = append(stats.Stages, domain.StageCacheStats{Stage: stage, Hits: h, Misses: ms})
	}
	if hits+misses > 0 {
		stats.HitRate = hits / (hits + misses)
	}

	g := &dto.Metric{}
	if err := m.workspacesLoaded.Write(g); err == nil && g.Gauge != nil && g.Gauge.Value != nil {
		stats.LoadedWorkspaces = int(*g.Gauge.Value)
	}
	return stats
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
