package analytics_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/broker-crm-bfa-go/internal/analytics"
	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

// --- Fakes ---

type fakeSource struct {
	mu   sync.Mutex
	snap domain.Snapshot
}

func newFakeSource(year int) *fakeSource {
	return &fakeSource{snap: domain.Snapshot{
		Goals:        domain.GoalsByYear{},
		DefaultGoals: domain.DefaultGoals,
		SelectedYear: year,
	}}
}

func (f *fakeSource) Snapshot() domain.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSource) setClosings(c ...domain.Closing) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Closings = c
	f.snap.Versions.Closings++
}

func (f *fakeSource) setActivities(a ...domain.Activity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Activities = a
	f.snap.Versions.Activities++
}

func (f *fakeSource) setProperties(p ...domain.Property) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Properties = p
	f.snap.Versions.Properties++
}

func (f *fakeSource) setVisits(v ...domain.Visit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Visits = v
	f.snap.Versions.Visits++
}

func (f *fakeSource) setBuyers(b ...domain.Buyer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Buyers = b
	f.snap.Versions.Buyers++
}

func (f *fakeSource) setSearches(s ...domain.BuyerSearch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Searches = s
	f.snap.Versions.Searches++
}

func (f *fakeSource) setGoals(g domain.FinancialGoals) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := f.snap.Goals.Clone()
	next[g.Year] = &g
	f.snap.Goals = next
	f.snap.Versions.Goals++
}

type countingObserver struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{hits: map[string]int{}, misses: map[string]int{}}
}

func (o *countingObserver) CacheHit(stage string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits[stage]++
}

func (o *countingObserver) CacheMiss(stage string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses[stage]++
}

// wednesday is 2024-06-12; its week runs 2024-06-10 to 2024-06-16.
var wednesday = time.Date(2024, time.June, 12, 15, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) analytics.Option {
	return analytics.WithClock(func() time.Time { return t })
}

func intPtr(v int) *int { return &v }

// --- Tests ---

func TestEngine_CacheHitReturnsSamePointer(t *testing.T) {
	src := newFakeSource(2024)
	src.setClosings(domain.Closing{ID: "c1", Date: "2024-03-01", Currency: domain.CurrencyUSD, SalePrice: 100000, CommissionPercent: 3, Sides: 1})
	obs := newCountingObserver()
	e := analytics.NewEngine(src, fixedClock(wednesday), analytics.WithObserver(obs))

	first := e.MetricsByYear(intPtr(2024))
	second := e.MetricsByYear(intPtr(2024))
	assert.Same(t, first, second)
	assert.Equal(t, 1, obs.misses["metrics"])
	assert.Equal(t, 1, obs.hits["metrics"])

	home := e.HomeDisplay()
	assert.Same(t, home, e.HomeDisplay())
	assert.Same(t, e.PlanAnalysis(intPtr(2024), nil), e.PlanAnalysis(intPtr(2024), nil))
	assert.Same(t, e.PerformanceMetrics(), e.PerformanceMetrics())
}

func TestEngine_ReplacingClosingsInvalidatesDownstream(t *testing.T) {
	src := newFakeSource(2024)
	e := analytics.NewEngine(src, fixedClock(wednesday))

	_ = e.UnifiedActivities()
	perf := e.PerformanceMetrics()
	plan := e.PlanAnalysis(intPtr(2024), nil)
	before := e.Invalidations(analytics.StageUnified)

	src.setClosings(domain.Closing{ID: "c1", Date: "2024-05-01", Currency: domain.CurrencyUSD, SalePrice: 200000, CommissionPercent: 3, Sides: 2})

	newPlan := e.PlanAnalysis(intPtr(2024), nil)
	assert.NotSame(t, plan, newPlan)
	assert.NotSame(t, perf, e.PerformanceMetrics())
	assert.Equal(t, before+1, e.Invalidations(analytics.StageUnified))
	assert.Equal(t, 2, e.PerformanceMetrics().TotalSidesYear)
	assert.InDelta(t, 6000, newPlan.BillingToDateUSD, 1e-9)
}

func TestEngine_VisitChangeKeepsMetrics(t *testing.T) {
	src := newFakeSource(2024)
	e := analytics.NewEngine(src, fixedClock(wednesday))

	metrics := e.MetricsByYear(intPtr(2024))
	feed := e.UnifiedActivities()
	require.Empty(t, feed)

	src.setVisits(domain.Visit{ID: "v1", PropertyID: "p1", Date: "2024-06-11", Status: domain.VisitCompleted})

	assert.Same(t, metrics, e.MetricsByYear(intPtr(2024)))
	assert.Len(t, e.UnifiedActivities(), 1)
	assert.Equal(t, 1, e.PerformanceMetrics().WeeklyVisitsDone)
}

func TestEngine_DayRolloverInvalidates(t *testing.T) {
	now := wednesday
	src := newFakeSource(2024)
	e := analytics.NewEngine(src, analytics.WithClock(func() time.Time { return now }))

	perf := e.PerformanceMetrics()
	now = now.Add(2 * time.Hour)
	assert.Same(t, perf, e.PerformanceMetrics())

	now = now.AddDate(0, 0, 5)
	next := e.PerformanceMetrics()
	assert.NotSame(t, perf, next)
	assert.Equal(t, "2024-06-17", next.WeekStart)
}

func TestEngine_SelectedYearChangeInvalidatesHome(t *testing.T) {
	src := newFakeSource(2024)
	e := analytics.NewEngine(src, fixedClock(wednesday))

	home := e.HomeDisplay()
	assert.Equal(t, 2024, home.Year)

	src.mu.Lock()
	src.snap.SelectedYear = 2023
	src.snap.Versions.Year++
	src.mu.Unlock()

	assert.Equal(t, 2023, e.HomeDisplay().Year)
}

func TestEngine_ExplicitInvalidate(t *testing.T) {
	src := newFakeSource(2024)
	e := analytics.NewEngine(src, fixedClock(wednesday))

	m := e.MetricsByYear(nil)
	e.Invalidate()
	assert.NotSame(t, m, e.MetricsByYear(nil))
	assert.Equal(t, uint64(1), e.Invalidations(analytics.StageMetrics))
	assert.Equal(t, uint64(1), e.Invalidations(analytics.StageHome))
}

func TestEngine_ConcurrentReaders(t *testing.T) {
	src := newFakeSource(2024)
	src.setActivities(domain.Activity{ID: "a1", Date: "2024-06-11", Type: domain.ActivityPreListing})
	e := analytics.NewEngine(src, fixedClock(wednesday))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				src.setActivities(domain.Activity{ID: "a1", Date: "2024-06-11", Type: domain.ActivityPreListing})
			}
			home := e.HomeDisplay()
			assert.Equal(t, 1, home.WeeklyPL)
		}(i)
	}
	wg.Wait()
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "metrics", analytics.StageMetrics.String())
	assert.Equal(t, "unified_activities", analytics.StageUnified.String())
	assert.Equal(t, "home", analytics.StageHome.String())
}
