package analytics

import "github.com/boddenberg/broker-crm-bfa-go/internal/domain"

// Business constants of the plan formulas. Values that differ between
// dashboards are kept as separate named constants; see PipelineProfile.
const (
	// DefaultPLPBRatio is the PL/PB-per-side ratio assumed until the agent
	// has reliable history.
	DefaultPLPBRatio = 6.0
	// DefaultCaptationRatio is the pre-listings-per-captación ratio assumed
	// until the agent has reliable history.
	DefaultCaptationRatio = 2.5
	// DefaultCommissionPct is the average commission used when the goals
	// leave it unset.
	DefaultCommissionPct = 3.0

	// RatioReliableWeeks and RatioReliableSides gate the measured PL/PB and
	// captation ratios.
	RatioReliableWeeks = 16
	RatioReliableSides = 5

	// ClosingRateReliableWeeks and ClosingRateReliableClosings gate the
	// measured closing rate. The week threshold is one above the ratio gate.
	ClosingRateReliableWeeks    = 17
	ClosingRateReliableClosings = 5

	// MinReliableClosings marks one year's metrics as reliable. The
	// historical view uses the ratio gate instead.
	MinReliableClosings = 5

	// PipelineCommissionRate is the commission applied to pipeline values.
	PipelineCommissionRate = 0.03
)

// PipelineProfile carries the close probabilities one dashboard applies to
// open inventory and to active buyer searches.
type PipelineProfile struct {
	Name                 string
	InventoryProbability float64
	SearchProbability    float64
}

var (
	// DashboardPipeline is the valuation shown on the business dashboard.
	DashboardPipeline = PipelineProfile{Name: "dashboard", InventoryProbability: 0.40, SearchProbability: 0.20}
	// HomePipeline is the valuation shown on the home screen.
	HomePipeline = PipelineProfile{Name: "home", InventoryProbability: 0.30, SearchProbability: 0.10}
)

// PipelineProfileByName resolves a profile name; unknown names fall back to
// the dashboard profile.
func PipelineProfileByName(name string) PipelineProfile {
	if name == HomePipeline.Name {
		return HomePipeline
	}
	return DashboardPipeline
}

// greenTypes are the activity types counted as weekly meetings. Closings
// are counted as sides instead.
var greenTypes = map[domain.ActivityType]bool{
	domain.ActivityGreen:      true,
	domain.ActivityPreListing: true,
	domain.ActivityPreBuying:  true,
	domain.ActivityACM:        true,
	domain.ActivityCaptacion:  true,
	domain.ActivityVisit:      true,
	domain.ActivityReserva:    true,
	domain.ActivityReferral:   true,
}

// IsGreen reports whether t counts as a green meeting.
func IsGreen(t domain.ActivityType) bool {
	return greenTypes[t]
}

// IsRatioDataReliable reports whether measured ratios can replace the
// defaults.
func IsRatioDataReliable(weeksOfData, totalSides int) bool {
	return weeksOfData >= RatioReliableWeeks && totalSides >= RatioReliableSides
}

// IsClosingRateReliable reports whether the measured closing rate can be
// shown.
func IsClosingRateReliable(weeksOfData, closings int) bool {
	return weeksOfData >= ClosingRateReliableWeeks && closings >= ClosingRateReliableClosings
}
