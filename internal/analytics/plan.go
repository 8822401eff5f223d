package analytics

import (
	"math"
	"time"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

type planInputs struct {
	year       *int
	effYear    int
	goals      *domain.FinancialGoals
	period     *domain.MetricsResult // metrics of year (all-time when year is nil)
	historical *domain.MetricsResult
}

func computePlan(in planInputs) *domain.PlanAnalysis {
	g := in.goals
	hist := in.historical
	p := &domain.PlanAnalysis{
		IsHistorical:           in.year == nil,
		AnnualBillingTargetUSD: g.AnnualBilling,
		HonorariumTargetUSD:    g.AnnualBilling * g.CommissionSplit / 100,
		CommercialWeeks:        g.CommercialWeeks,
		MeasuredRatio:          hist.RatioPLPB,
	}
	if in.year != nil {
		p.Year = *in.year
	}

	// --- Ticket and transactions ---
	p.EffectiveTicketUSD, p.TicketIsManual = resolveTicket(g, hist)
	p.CommissionRatePct = g.AverageCommission
	if p.CommissionRatePct <= 0 {
		p.CommissionRatePct = DefaultCommissionPct
	}
	p.TransactionsNeeded = safeDiv(g.AnnualBilling, p.EffectiveTicketUSD*p.CommissionRatePct/100)

	// --- Ratios ---
	reliable := IsRatioDataReliable(hist.WeeksOfData, hist.TotalSides)
	p.IsDataReliable = reliable
	switch {
	case g.IsManualRatio && g.ManualRatio > 0:
		p.EffectiveRatio, p.RatioSource = g.ManualRatio, domain.RatioManual
	case reliable && hist.RatioPLPB > 0:
		p.EffectiveRatio, p.RatioSource = hist.RatioPLPB, domain.RatioMeasured
	default:
		p.EffectiveRatio, p.RatioSource = DefaultPLPBRatio, domain.RatioDefault
	}

	switch {
	case g.IsManualCaptationRatio && g.ManualCaptationRatio > 0:
		p.CaptationRatio, p.CaptationRatioSource = g.ManualCaptationRatio, domain.RatioManual
	case reliable && hist.TotalCaptaciones > 0 && hist.TotalPreListings > 0:
		p.CaptationRatio = float64(hist.TotalPreListings) / float64(hist.TotalCaptaciones)
		p.CaptationRatioSource = domain.RatioMeasured
	default:
		p.CaptationRatio, p.CaptationRatioSource = DefaultCaptationRatio, domain.RatioDefault
	}

	if IsClosingRateReliable(hist.WeeksOfData, hist.ClosingsCount) && hist.TotalPLPB > 0 {
		p.ClosingRatePct = float64(hist.ClosingsCount) / float64(hist.TotalPLPB) * 100
		p.ClosingRateIsMeasured = true
	} else {
		p.ClosingRatePct = safeDiv(100, p.EffectiveRatio)
	}

	// --- Critical number ---
	p.PLPBNeededYear = p.TransactionsNeeded * p.EffectiveRatio
	p.RealCriticalNumber = safeDiv(p.PLPBNeededYear, g.CommercialWeeks)

	p.CurrentWeeklyPLPB = safeDiv(float64(in.period.TotalPLPB), float64(in.period.WeeksOfData))
	p.CriticalProgressPct = safeDiv(p.CurrentWeeklyPLPB, p.RealCriticalNumber) * 100
	p.IsOnTrack = p.RealCriticalNumber > 0 && p.CurrentWeeklyPLPB >= p.RealCriticalNumber

	p.BillingToDateUSD = in.period.TotalGCIUSD
	p.BillingProgressPct = safeDiv(p.BillingToDateUSD, g.AnnualBilling) * 100
	p.RemainingBillingUSD = math.Max(0, g.AnnualBilling-p.BillingToDateUSD)

	p.Captation = captationAlignment(g, in.effYear, p.CaptationRatio, p.RealCriticalNumber)
	return p
}

// resolveTicket picks the manual ticket when requested, else the all-time
// average, else the manual value again so a zero history cannot zero the
// divisor.
func resolveTicket(g *domain.FinancialGoals, hist *domain.MetricsResult) (float64, bool) {
	if g.IsManualTicket {
		return g.AverageTicket, true
	}
	if hist.AvgTicketUSD > 0 {
		return hist.AvgTicketUSD, false
	}
	return g.AverageTicket, true
}

// captationAlignment compares the weekly pre-listings a captation goal
// requires over its date range with the billing-driven critical number.
// Without explicit dates the goal spans the fiscal year.
func captationAlignment(g *domain.FinancialGoals, year int, ratio, critical float64) domain.CaptationAlignment {
	a := domain.CaptationAlignment{GoalQty: g.CaptationGoalQty, IsAligned: true}
	if g.CaptationGoalQty <= 0 {
		return a
	}
	a.HasGoal = true

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	if t, err := time.Parse(domain.DateLayout, g.CaptationStartDate); err == nil {
		start = t
	}
	if t, err := time.Parse(domain.DateLayout, g.CaptationEndDate); err == nil {
		end = t
	}
	a.Weeks = math.Max(1, math.Ceil(end.Sub(start).Hours()/(24*7)))

	a.WeeklyCaptationsNeeded = float64(g.CaptationGoalQty) / a.Weeks
	a.WeeklyPreListingsNeeded = a.WeeklyCaptationsNeeded * ratio
	if a.WeeklyPreListingsNeeded > critical {
		a.IsAligned = false
		a.ExcessOverCriticalNumber = a.WeeklyPreListingsNeeded - critical
	}
	return a
}
