package domain

// ============================================================
// Financial goals (one configuration per fiscal year)
// ============================================================

// FallbackExchangeRate is the ARS per USD rate used when no goal exists
// for a closing's year.
const FallbackExchangeRate = 1100.0

// FinancialGoals is the business plan for one fiscal year.
type FinancialGoals struct {
	Year              int     `json:"year" yaml:"year"`
	AnnualBilling     float64 `json:"annualBilling" yaml:"annualBilling"`
	AverageTicket     float64 `json:"averageTicket" yaml:"averageTicket"`
	IsManualTicket    bool    `json:"isManualTicket" yaml:"isManualTicket"`
	AverageCommission float64 `json:"averageCommission" yaml:"averageCommission"`
	CommissionSplit   float64 `json:"commissionSplit" yaml:"commissionSplit"`
	CommercialWeeks   float64 `json:"commercialWeeks" yaml:"commercialWeeks"`
	ManualRatio       float64 `json:"manualRatio" yaml:"manualRatio"`
	IsManualRatio     bool    `json:"isManualRatio" yaml:"isManualRatio"`
	ExchangeRate      float64 `json:"exchangeRate" yaml:"exchangeRate"`

	CaptationGoalQty       int     `json:"captationGoalQty" yaml:"captationGoalQty"`
	CaptationStartDate     string  `json:"captationStartDate,omitempty" yaml:"captationStartDate"`
	CaptationEndDate       string  `json:"captationEndDate,omitempty" yaml:"captationEndDate"`
	ManualCaptationRatio   float64 `json:"manualCaptationRatio" yaml:"manualCaptationRatio"`
	IsManualCaptationRatio bool    `json:"isManualCaptationRatio" yaml:"isManualCaptationRatio"`
}

// DefaultGoals is the plan used for any year without a stored configuration.
var DefaultGoals = FinancialGoals{
	AnnualBilling:     40000,
	AverageTicket:     100000,
	AverageCommission: 3,
	CommissionSplit:   45,
	CommercialWeeks:   48,
	ManualRatio:       6,
	ExchangeRate:      FallbackExchangeRate,
}

// Validate checks the ranges the plan formulas divide by.
func (g *FinancialGoals) Validate() error {
	if g.AnnualBilling < 0 {
		return &ErrValidation{Field: "annualBilling", Message: "must not be negative"}
	}
	if g.CommercialWeeks < 0 || g.CommercialWeeks > 53 {
		return &ErrValidation{Field: "commercialWeeks", Message: "must be between 0 and 53"}
	}
	if g.CommissionSplit < 0 || g.CommissionSplit > 100 {
		return &ErrValidation{Field: "commissionSplit", Message: "must be between 0 and 100"}
	}
	if g.ExchangeRate < 0 {
		return &ErrValidation{Field: "exchangeRate", Message: "must not be negative"}
	}
	if g.CaptationStartDate != "" && g.CaptationEndDate != "" && g.CaptationEndDate < g.CaptationStartDate {
		return &ErrValidation{Field: "captationEndDate", Message: "must not be before captationStartDate"}
	}
	return nil
}

// GoalsByYear is a sparse per-year goals dictionary.
type GoalsByYear map[int]*FinancialGoals

// Lookup returns the stored goals for year, if any.
func (g GoalsByYear) Lookup(year int) (*FinancialGoals, bool) {
	goals, ok := g[year]
	return goals, ok && goals != nil
}

// GetOrDefault returns the goals for year, or a copy of defaults stamped
// with that year.
func (g GoalsByYear) GetOrDefault(year int, defaults FinancialGoals) *FinancialGoals {
	if goals, ok := g.Lookup(year); ok {
		return goals
	}
	d := defaults
	d.Year = year
	return &d
}

// Clone returns a shallow copy of the dictionary (goal pointers are shared).
func (g GoalsByYear) Clone() GoalsByYear {
	out := make(GoalsByYear, len(g)+1)
	for y, goals := range g {
		out[y] = goals
	}
	return out
}

// GoalsState is the goals of one year as the agent is editing them.
type GoalsState struct {
	Goals   FinancialGoals `json:"goals"`
	Stored  bool           `json:"stored"`
	Unsaved bool           `json:"unsaved"`
}
