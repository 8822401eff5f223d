package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/broker-crm-bfa-go/internal/analytics"
	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

func TestUnifiedActivities_SynthesizesVisitsAndListings(t *testing.T) {
	src := newFakeSource(2024)
	src.setBuyers(domain.Buyer{ID: "b1", Name: "Lucía Gómez"})
	src.mu.Lock()
	src.snap.Sellers = []domain.Seller{{ID: "s1", Name: "Martín Ruiz"}}
	src.snap.Versions.Sellers++
	src.mu.Unlock()
	src.setActivities(domain.Activity{ID: "m1", Date: "2024-06-10", Type: domain.ActivityGreen})
	src.setVisits(
		domain.Visit{ID: "v1", PropertyID: "p1", BuyerClientID: "b1", Date: "2024-06-11", Status: domain.VisitCompleted, Feedback: "liked it", NextSteps: "second visit"},
		domain.Visit{ID: "v2", PropertyID: "p1", BuyerClientID: "b1", Date: "2024-06-12", Status: domain.VisitPending},
	)
	src.setProperties(
		domain.Property{ID: "p1", SellerID: "s1", Title: "PH Palermo", Status: domain.PropertyAvailable, CreatedAt: "2024-06-12T13:45:00Z"},
		domain.Property{ID: "p2", Address: "Av. Santa Fe 1234", Status: domain.PropertyAvailable, CreatedAt: "garbage"},
	)
	e := analytics.NewEngine(src, fixedClock(wednesday))

	feed := e.UnifiedActivities()
	require.Len(t, feed, 3)

	assert.Equal(t, domain.SourceManual, feed[0].Source())
	assert.Equal(t, "m1", feed[0].Activity().ID)

	visit := feed[1].Activity()
	assert.Equal(t, domain.SourceVisit, feed[1].Source())
	assert.Equal(t, "visit-v1", visit.ID)
	assert.Equal(t, domain.ActivityVisit, visit.Type)
	assert.True(t, visit.SystemGenerated)
	assert.Equal(t, "Lucía Gómez", visit.ContactName)
	assert.Equal(t, "liked it | second visit", visit.Notes)

	listing := feed[2].Activity()
	assert.Equal(t, domain.SourceListing, feed[2].Source())
	assert.Equal(t, "prop-p1", listing.ID)
	assert.Equal(t, domain.ActivityCaptacion, listing.Type)
	assert.Equal(t, "2024-06-12", listing.Date)
	assert.Equal(t, "Martín Ruiz", listing.ContactName)
	assert.Equal(t, "PH Palermo", listing.Notes)
}

func TestPerformanceMetrics_CountsCurrentWeek(t *testing.T) {
	src := newFakeSource(2024)
	src.setClosings(domain.Closing{ID: "c1", Date: "2024-03-01", Currency: domain.CurrencyUSD, SalePrice: 100000, CommissionPercent: 3, Sides: 2})
	src.setActivities(
		domain.Activity{ID: "a1", Date: "2024-06-10", Type: domain.ActivityPreListing},
		domain.Activity{ID: "a2", Date: "2024-06-16", Type: domain.ActivityPreBuying},
		domain.Activity{ID: "a3", Date: "2024-06-13", Type: domain.ActivityGreen},
		domain.Activity{ID: "a4", Date: "2024-06-14", Type: domain.ActivityCierre},
		domain.Activity{ID: "old", Date: "2024-06-09", Type: domain.ActivityPreListing},
		domain.Activity{ID: "next", Date: "2024-06-17", Type: domain.ActivityPreListing},
	)
	src.setVisits(domain.Visit{ID: "v1", PropertyID: "p1", Date: "2024-06-11", Status: domain.VisitCompleted})
	e := analytics.NewEngine(src, fixedClock(wednesday))

	p := e.PerformanceMetrics()

	assert.Equal(t, "2024-06-10", p.WeekStart)
	assert.Equal(t, "2024-06-16", p.WeekEnd)
	assert.Equal(t, 1, p.WeeklyPLDone)
	assert.Equal(t, 1, p.WeeklyPBDone)
	assert.Equal(t, 1, p.WeeklyVisitsDone)
	assert.Equal(t, 4, p.GreenMeetingsWeekly)
	assert.Equal(t, 3, p.TotalWeeklyTraction)
	assert.Equal(t, 2, p.TotalSidesYear)
}

func TestWeekBounds(t *testing.T) {
	tests := []struct {
		name  string
		now   time.Time
		start string
		end   string
	}{
		{name: "monday", now: time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC), start: "2024-06-10", end: "2024-06-16"},
		{name: "wednesday", now: wednesday, start: "2024-06-10", end: "2024-06-16"},
		{name: "sunday", now: time.Date(2024, 6, 16, 23, 0, 0, 0, time.UTC), start: "2024-06-10", end: "2024-06-16"},
		{name: "across year", now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), start: "2024-12-30", end: "2025-01-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := analytics.WeekBounds(tt.now)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestFilterFeed(t *testing.T) {
	feed := []domain.FeedItem{
		domain.ManualActivity{Record: domain.Activity{ID: "a", Date: "2024-01-01"}},
		domain.ManualActivity{Record: domain.Activity{ID: "b", Date: "2024-02-01"}},
		domain.ManualActivity{Record: domain.Activity{ID: "c", Date: "2024-03-01"}},
	}

	assert.Len(t, analytics.FilterFeed(feed, "", ""), 3)
	got := analytics.FilterFeed(feed, "2024-01-15", "2024-03-01")
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Activity().ID)
}
