package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boddenberg/broker-crm-bfa-go/internal/analytics"
	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

func TestPipelineValue_Profiles(t *testing.T) {
	src := newFakeSource(2024)
	src.setProperties(
		domain.Property{ID: "p1", Status: domain.PropertyAvailable, Price: 100000, Currency: domain.CurrencyUSD},
		domain.Property{ID: "p2", Status: domain.PropertySold, Price: 900000, Currency: domain.CurrencyUSD},
	)
	src.setSearches(
		domain.BuyerSearch{ID: "s1", Status: domain.SearchActive, Budget: domain.Budget{Min: 10000, Max: 50000, Currency: domain.CurrencyUSD}},
		domain.BuyerSearch{ID: "s2", Status: domain.SearchPaused, Budget: domain.Budget{Max: 500000, Currency: domain.CurrencyUSD}},
	)
	e := analytics.NewEngine(src, fixedClock(wednesday))

	assert.InDelta(t, 1200+300, e.PipelineValue(analytics.DashboardPipeline), 1e-9)
	assert.InDelta(t, 900+150, e.PipelineValue(analytics.HomePipeline), 1e-9)
}

func TestPipelineValue_FollowsExchangeRate(t *testing.T) {
	src := newFakeSource(2024)
	src.setProperties(domain.Property{ID: "p1", Status: domain.PropertyReserved, Price: 110000000, Currency: domain.CurrencyARS})
	obs := newCountingObserver()
	e := analytics.NewEngine(src, fixedClock(wednesday), analytics.WithObserver(obs))

	assert.InDelta(t, 1200, e.PipelineValue(analytics.DashboardPipeline), 1e-9)
	assert.InDelta(t, 1200, e.PipelineValue(analytics.DashboardPipeline), 1e-9)
	assert.Equal(t, 1, obs.hits["pipeline"])

	g := domain.DefaultGoals
	g.Year = 2024
	g.ExchangeRate = 2200
	src.setGoals(g)

	assert.InDelta(t, 600, e.PipelineValue(analytics.DashboardPipeline), 1e-9)
}

func TestPipelineProfileByName(t *testing.T) {
	assert.Equal(t, analytics.HomePipeline, analytics.PipelineProfileByName("home"))
	assert.Equal(t, analytics.DashboardPipeline, analytics.PipelineProfileByName("dashboard"))
	assert.Equal(t, analytics.DashboardPipeline, analytics.PipelineProfileByName(""))
}

func TestHomeDisplay_MergesStages(t *testing.T) {
	src := newFakeSource(2024)
	src.setClosings(domain.Closing{ID: "c1", Date: "2024-02-01", Currency: domain.CurrencyUSD, SalePrice: 200000, CommissionPercent: 3, Sides: 1, SubSplitPercent: 40})
	src.setActivities(
		domain.Activity{ID: "a1", Date: "2024-06-11", Type: domain.ActivityPreListing},
		domain.Activity{ID: "a2", Date: "2024-06-12", Type: domain.ActivityPreBuying},
	)
	e := analytics.NewEngine(src, fixedClock(wednesday))

	h := e.HomeDisplay()
	plan := e.PlanAnalysis(intPtr(2024), nil)

	assert.Equal(t, 2024, h.Year)
	assert.InDelta(t, 6000, h.Billing, 1e-9)
	assert.InDelta(t, 2400, h.Honorarium, 1e-9)
	assert.Equal(t, 1, h.Sides)
	assert.Equal(t, 2, h.WeeklyTraction)
	assert.InDelta(t, plan.RealCriticalNumber, h.CriticalNumber, 1e-9)
	assert.InDelta(t, 2/plan.RealCriticalNumber*100, h.TractionPct, 1e-9)
	assert.InDelta(t, 15, h.BillingProgress, 1e-9)
	assert.Equal(t, domain.RatioDefault, h.RatioSource)
}
