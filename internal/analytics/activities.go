package analytics

import (
	"time"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

// buildUnified merges manual activities with the ones implied by completed
// visits and by listings. Contact names come from id→name maps.
func buildUnified(snap *domain.Snapshot) []domain.FeedItem {
	buyers := make(map[string]string, len(snap.Buyers))
	for _, b := range snap.Buyers {
		buyers[b.ID] = b.Name
	}
	sellers := make(map[string]string, len(snap.Sellers))
	for _, s := range snap.Sellers {
		sellers[s.ID] = s.Name
	}

	items := make([]domain.FeedItem, 0, len(snap.Activities)+len(snap.Visits)+len(snap.Properties))
	for _, a := range snap.Activities {
		items = append(items, domain.ManualActivity{Record: a})
	}
	for _, v := range snap.Visits {
		if v.Status != domain.VisitCompleted {
			continue
		}
		items = append(items, domain.VisitActivity{Visit: v, ContactName: buyers[v.BuyerClientID]})
	}
	for _, p := range snap.Properties {
		date, ok := domain.DateOnly(p.CreatedAt)
		if !ok {
			continue
		}
		items = append(items, domain.ListingActivity{Property: p, Date: date, ContactName: sellers[p.SellerID]})
	}
	return items
}

// WeekBounds returns the Monday and Sunday (YYYY-MM-DD) of the week of now.
func WeekBounds(now time.Time) (string, string) {
	weekday := int(now.Weekday())
	offset := 1 - weekday
	if weekday == 0 {
		offset = -6
	}
	start := now.AddDate(0, 0, offset)
	end := start.AddDate(0, 0, 6)
	return start.Format(domain.DateLayout), end.Format(domain.DateLayout)
}

// computePerformance counts this week's feed entries. Dates are compared as
// YYYY-MM-DD strings so no timezone conversion can move an entry across
// the week boundary.
func computePerformance(feed []domain.FeedItem, year *domain.MetricsResult, now time.Time) *domain.PerformanceMetrics {
	start, end := WeekBounds(now)
	p := &domain.PerformanceMetrics{
		WeekStart:      start,
		WeekEnd:        end,
		TotalSidesYear: year.TotalSides,
	}
	for _, item := range feed {
		a := item.Activity()
		if len(a.Date) < 10 {
			continue
		}
		d := a.Date[:10]
		if d < start || d > end {
			continue
		}
		if IsGreen(a.Type) {
			p.GreenMeetingsWeekly++
		}
		switch a.Type {
		case domain.ActivityPreListing:
			p.WeeklyPLDone++
		case domain.ActivityPreBuying:
			p.WeeklyPBDone++
		case domain.ActivityVisit:
			p.WeeklyVisitsDone++
		}
	}
	p.TotalWeeklyTraction = p.WeeklyPLDone + p.WeeklyPBDone + p.WeeklyVisitsDone
	return p
}

// FilterFeed returns the entries dated within [from, to]; empty bounds are
// open.
func FilterFeed(feed []domain.FeedItem, from, to string) []domain.FeedItem {
	out := make([]domain.FeedItem, 0, len(feed))
	for _, item := range feed {
		d := item.Activity().Date
		if len(d) >= 10 {
			d = d[:10]
		}
		if from != "" && d < from {
			continue
		}
		if to != "" && d > to {
			continue
		}
		out = append(out, item)
	}
	return out
}
