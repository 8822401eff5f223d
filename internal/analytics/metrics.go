package analytics

import (
	"math"
	"time"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

// computeMetrics runs one pass over closings and one over activities.
func computeMetrics(snap *domain.Snapshot, year *int, now time.Time) *domain.MetricsResult {
	m := &domain.MetricsResult{
		IsHistorical: year == nil,
		Closings:     make([]domain.Closing, 0),
	}
	if year != nil {
		m.Year = *year
	}

	// --- Closings ---
	var commissionSum float64
	for i := range snap.Closings {
		c := &snap.Closings[i]
		cy, ok := domain.YearOf(c.Date)
		if !ok {
			continue
		}
		if year != nil && cy != *year {
			continue
		}

		rate := historicalRate(snap.Goals, cy, c)
		priceUSD := ToUSD(c.SalePrice, c.Currency, rate)
		gci := priceUSD * c.CommissionPercent / 100

		m.TotalBillingUSD += priceUSD
		m.TotalGCIUSD += gci
		m.NetIncomeUSD += honorariumUSD(c, gci, rate)
		m.TotalSides += c.Sides
		m.ClosingsCount++
		m.Closings = append(m.Closings, *c)
		commissionSum += c.CommissionPercent
	}

	// --- Activities ---
	firstActivity := ""
	for i := range snap.Activities {
		a := &snap.Activities[i]
		ay, ok := domain.YearOf(a.Date)
		if !ok {
			continue
		}
		if ay == snap.SelectedYear {
			if d := a.Date[:10]; firstActivity == "" || d < firstActivity {
				firstActivity = d
			}
		}
		if year != nil && ay != *year {
			continue
		}
		switch a.Type {
		case domain.ActivityPreListing:
			m.TotalPLPB++
			m.TotalPreListings++
		case domain.ActivityPreBuying:
			m.TotalPLPB++
		case domain.ActivityCaptacion:
			m.TotalCaptaciones++
		}
		if IsGreen(a.Type) {
			m.GreenActivities++
		}
	}

	for i := range snap.Properties {
		if snap.Properties[i].Status.IsActive() {
			m.ActiveProperties++
		}
	}

	// --- Derived ---
	if m.ClosingsCount > 0 {
		m.AvgTicketUSD = m.TotalBillingUSD / float64(m.ClosingsCount)
		m.AvgCommissionPct = commissionSum / float64(m.ClosingsCount)
	}
	if m.TotalSides > 0 {
		m.RatioPLPB = float64(m.TotalPLPB) / float64(m.TotalSides)
		m.AvgHonorariumSide = m.NetIncomeUSD / float64(m.TotalSides)
	} else {
		m.RatioPLPB = float64(m.TotalPLPB)
	}
	if m.TotalPLPB > 0 {
		m.Effectiveness = float64(m.TotalSides) / float64(m.TotalPLPB) * 100
	}
	m.ProductivityGreen = safeDiv(m.NetIncomeUSD, float64(m.GreenActivities))

	m.FirstActivityDate = firstActivity
	m.WeeksOfData = weeksOfData(firstActivity, snap.SelectedYear, now)
	if year == nil {
		// The all-time view feeds the measured ratios, so it also needs the
		// weeks of history those ratios are gated on.
		m.IsDataReliable = IsRatioDataReliable(m.WeeksOfData, m.TotalSides)
	} else {
		m.IsDataReliable = m.ClosingsCount >= MinReliableClosings
	}
	return m
}

// honorariumUSD is the agent's share of a closing: the recorded honorarium
// when present, otherwise the GCI after the sub-split.
func honorariumUSD(c *domain.Closing, gciUSD, rate float64) float64 {
	if c.AgentHonorarium > 0 {
		return ToUSD(c.AgentHonorarium, c.Currency, rate)
	}
	return gciUSD * c.SubSplitPercent / 100
}

// weeksOfData counts the weeks between the first activity and the earlier
// of today and Dec 31 of year, never less than 1.
func weeksOfData(firstActivity string, year int, now time.Time) int {
	if firstActivity == "" {
		return 1
	}
	first, err := time.Parse(domain.DateLayout, firstActivity)
	if err != nil {
		return 1
	}
	today, _ := time.Parse(domain.DateLayout, now.Format(domain.DateLayout))
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	if today.Before(end) {
		end = today
	}
	weeks := int(math.Ceil(end.Sub(first).Hours() / (24 * 7)))
	if weeks < 1 {
		return 1
	}
	return weeks
}
