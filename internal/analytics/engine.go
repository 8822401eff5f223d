// Package analytics computes the year-scoped business metrics, the unified
// activity feed, weekly traction, plan projections and pipeline value of one
// agent, memoized on the versions of the agent's record collections.
package analytics

import (
	"strconv"
	"sync"
	"time"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

// Source supplies the current record snapshot.
type Source interface {
	Snapshot() domain.Snapshot
}

// Observer is notified of every memo lookup.
type Observer interface {
	CacheHit(stage string)
	CacheMiss(stage string)
}

// Stage is one memoized computation. Stages are ordered by dependency:
// invalidating a stage invalidates every later stage.
type Stage int

const (
	StageMetrics Stage = iota
	StageUnified
	StagePerformance
	StagePlan
	StageHome
	stageCount
)

// stagePipeline is memoized outside the dependency chain.
const stagePipeline = "pipeline"

func (s Stage) String() string {
	switch s {
	case StageMetrics:
		return "metrics"
	case StageUnified:
		return "unified_activities"
	case StagePerformance:
		return "performance"
	case StagePlan:
		return "plan"
	case StageHome:
		return "home"
	default:
		return "unknown"
	}
}

type planEntry struct {
	goals  *domain.FinancialGoals // caller override, nil when resolved from the snapshot
	result *domain.PlanAnalysis
}

type pipelineEntry struct {
	rate  float64
	value float64
}

// Engine memoizes the analytics of one record source. It is safe for
// concurrent use; all computations run under one lock so an invalidation is
// never observed half-applied.
type Engine struct {
	mu       sync.Mutex
	source   Source
	observer Observer
	now      func() time.Time

	primed bool
	seen   domain.Versions
	day    string
	snap   domain.Snapshot

	metrics     map[string]*domain.MetricsResult
	unified     []domain.FeedItem
	unifiedOK   bool
	performance *domain.PerformanceMetrics
	plans       map[string]planEntry
	home        *domain.HomeDisplayMetrics
	pipeline    map[string]pipelineEntry

	invalidations [stageCount]uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithObserver reports cache hits and misses.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// NewEngine creates an engine with empty caches.
func NewEngine(source Source, opts ...Option) *Engine {
	e := &Engine{
		source:   source,
		now:      time.Now,
		metrics:  make(map[string]*domain.MetricsResult),
		plans:    make(map[string]planEntry),
		pipeline: make(map[string]pipelineEntry),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MetricsByYear returns the metrics of year, or the all-time metrics when
// year is nil.
func (e *Engine) MetricsByYear(year *int) *domain.MetricsResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sync()
	return e.metricsLocked(year)
}

// UnifiedActivities returns manual activities, then activities synthesized
// from completed visits, then from listings. The slice is shared; callers
// must copy it before sorting.
func (e *Engine) UnifiedActivities() []domain.FeedItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sync()
	return e.unifiedLocked()
}

// PerformanceMetrics returns the current week's traction.
func (e *Engine) PerformanceMetrics() *domain.PerformanceMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sync()
	return e.performanceLocked()
}

// PlanAnalysis projects the goals of year against the measured history.
// A nil year compares the selected year's goals with all-time figures.
// A non-nil goals overrides the stored configuration; the cached result is
// reused only while the same override pointer is passed.
func (e *Engine) PlanAnalysis(year *int, goals *domain.FinancialGoals) *domain.PlanAnalysis {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sync()
	return e.planLocked(year, goals)
}

// PipelineValue returns the probability-weighted commission, in USD, of
// open inventory and active buyer searches.
func (e *Engine) PipelineValue(profile PipelineProfile) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sync()
	return e.pipelineLocked(profile)
}

// HomeDisplay returns the home dashboard view for the selected year.
func (e *Engine) HomeDisplay() *domain.HomeDisplayMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sync()
	return e.homeLocked()
}

// Invalidate drops every cache.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invalidateFrom(StageMetrics)
	e.pipeline = make(map[string]pipelineEntry)
}

// Invalidations returns how many times stage has been cleared.
func (e *Engine) Invalidations(stage Stage) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invalidations[stage]
}

// sync pulls a fresh snapshot and clears every cache whose inputs moved.
func (e *Engine) sync() {
	snap := e.source.Snapshot()
	day := e.now().Format(domain.DateLayout)
	v := snap.Versions

	if e.primed {
		from := stageCount
		if e.seen.Closings != v.Closings || e.seen.Activities != v.Activities ||
			e.seen.Properties != v.Properties || e.seen.Goals != v.Goals ||
			e.seen.Year != v.Year || e.day != day {
			from = StageMetrics
		} else if e.seen.Visits != v.Visits || e.seen.Buyers != v.Buyers || e.seen.Sellers != v.Sellers {
			from = StageUnified
		}
		if from < stageCount {
			e.invalidateFrom(from)
		}
		if e.seen.Properties != v.Properties || e.seen.Searches != v.Searches {
			e.pipeline = make(map[string]pipelineEntry)
		}
	}

	e.primed = true
	e.seen = v
	e.day = day
	e.snap = snap
}

// invalidateFrom clears stage and everything downstream of it.
func (e *Engine) invalidateFrom(stage Stage) {
	for s := stage; s < stageCount; s++ {
		switch s {
		case StageMetrics:
			e.metrics = make(map[string]*domain.MetricsResult)
		case StageUnified:
			e.unified, e.unifiedOK = nil, false
		case StagePerformance:
			e.performance = nil
		case StagePlan:
			e.plans = make(map[string]planEntry)
		case StageHome:
			e.home = nil
		}
		e.invalidations[s]++
	}
}

func (e *Engine) hit(stage string) {
	if e.observer != nil {
		e.observer.CacheHit(stage)
	}
}

func (e *Engine) miss(stage string) {
	if e.observer != nil {
		e.observer.CacheMiss(stage)
	}
}

func (e *Engine) metricsLocked(year *int) *domain.MetricsResult {
	key := yearKey(year)
	if m, ok := e.metrics[key]; ok {
		e.hit(StageMetrics.String())
		return m
	}
	e.miss(StageMetrics.String())
	m := computeMetrics(&e.snap, year, e.now())
	e.metrics[key] = m
	return m
}

func (e *Engine) unifiedLocked() []domain.FeedItem {
	if e.unifiedOK {
		e.hit(StageUnified.String())
		return e.unified
	}
	e.miss(StageUnified.String())
	e.unified = buildUnified(&e.snap)
	e.unifiedOK = true
	return e.unified
}

func (e *Engine) performanceLocked() *domain.PerformanceMetrics {
	if e.performance != nil {
		e.hit(StagePerformance.String())
		return e.performance
	}
	e.miss(StagePerformance.String())
	year := e.snap.SelectedYear
	e.performance = computePerformance(e.unifiedLocked(), e.metricsLocked(&year), e.now())
	return e.performance
}

func (e *Engine) planLocked(year *int, goals *domain.FinancialGoals) *domain.PlanAnalysis {
	key := yearKey(year)
	if entry, ok := e.plans[key]; ok && entry.goals == goals {
		e.hit(StagePlan.String())
		return entry.result
	}
	e.miss(StagePlan.String())

	effYear := e.snap.SelectedYear
	if year != nil {
		effYear = *year
	}
	resolved := goals
	if resolved == nil {
		resolved = e.snap.GoalsFor(effYear)
	}
	result := computePlan(planInputs{
		year:       year,
		effYear:    effYear,
		goals:      resolved,
		period:     e.metricsLocked(year),
		historical: e.metricsLocked(nil),
	})
	e.plans[key] = planEntry{goals: goals, result: result}
	return result
}

func (e *Engine) homeLocked() *domain.HomeDisplayMetrics {
	if e.home != nil {
		e.hit(StageHome.String())
		return e.home
	}
	e.miss(StageHome.String())
	year := e.snap.SelectedYear
	e.home = buildHome(year, e.metricsLocked(&year), e.planLocked(&year, nil), e.performanceLocked())
	return e.home
}

func (e *Engine) pipelineLocked(profile PipelineProfile) float64 {
	rate := CurrentRate(&e.snap)
	// Keyed by the current rate as well as the profile. The dashboard this
	// replaces kept serving the value priced at the old rate after a change.
	if entry, ok := e.pipeline[profile.Name]; ok && entry.rate == rate {
		e.hit(stagePipeline)
		return entry.value
	}
	e.miss(stagePipeline)
	value := computePipeline(&e.snap, profile, rate)
	e.pipeline[profile.Name] = pipelineEntry{rate: rate, value: value}
	return value
}

func yearKey(year *int) string {
	if year == nil {
		return "historical"
	}
	return strconv.Itoa(*year)
}
