package analytics

import "github.com/boddenberg/broker-crm-bfa-go/internal/domain"

// buildHome renames and merges the selected year's figures for the home
// screen.
func buildHome(year int, m *domain.MetricsResult, plan *domain.PlanAnalysis, perf *domain.PerformanceMetrics) *domain.HomeDisplayMetrics {
	return &domain.HomeDisplayMetrics{
		Year:             year,
		Billing:          m.TotalGCIUSD,
		Honorarium:       m.NetIncomeUSD,
		Sides:            m.TotalSides,
		Closings:         m.ClosingsCount,
		AvgTicket:        m.AvgTicketUSD,
		ActiveListings:   m.ActiveProperties,
		Effectiveness:    m.Effectiveness,
		Ratio:            plan.EffectiveRatio,
		RatioSource:      plan.RatioSource,
		CriticalNumber:   plan.RealCriticalNumber,
		WeeklyGreen:      perf.GreenMeetingsWeekly,
		WeeklyPL:         perf.WeeklyPLDone,
		WeeklyPB:         perf.WeeklyPBDone,
		WeeklyTraction:   perf.TotalWeeklyTraction,
		TractionPct:      safeDiv(float64(perf.WeeklyPLDone+perf.WeeklyPBDone), plan.RealCriticalNumber) * 100,
		BillingGoal:      plan.AnnualBillingTargetUSD,
		BillingProgress:  plan.BillingProgressPct,
		CaptationAligned: plan.Captation.IsAligned,
		DataReliable:     plan.IsDataReliable,
	}
}
