package domain

// ============================================================
// Analytics results (returned by pointer; treat as read-only)
// ============================================================

// MetricsResult holds the year-scoped financial and activity figures.
// All money is expressed in USD.
type MetricsResult struct {
	Year         int  `json:"year,omitempty"`
	IsHistorical bool `json:"isHistorical"`

	TotalBillingUSD   float64   `json:"totalBillingUSD"`
	TotalGCIUSD       float64   `json:"totalGCIUSD"`
	NetIncomeUSD      float64   `json:"netIncomeUSD"`
	TotalSides        int       `json:"totalSides"`
	ClosingsCount     int       `json:"closingsCount"`
	Closings          []Closing `json:"closings"`
	AvgTicketUSD      float64   `json:"avgTicketUSD"`
	AvgCommissionPct  float64   `json:"avgCommissionPct"`
	AvgHonorariumSide float64   `json:"avgHonorariumPerSideUSD"`

	TotalPLPB         int     `json:"totalPLPB"`
	TotalPreListings  int     `json:"totalPreListings"`
	TotalCaptaciones  int     `json:"totalCaptaciones"`
	GreenActivities   int     `json:"greenActivities"`
	RatioPLPB         float64 `json:"ratioPLPB"`
	Effectiveness     float64 `json:"effectiveness"`
	ProductivityGreen float64 `json:"productivityPerGreenActivityUSD"`

	ActiveProperties int `json:"activeProperties"`

	FirstActivityDate string `json:"firstActivityDate,omitempty"`
	WeeksOfData       int    `json:"weeksOfData"`
	IsDataReliable    bool   `json:"isDataReliable"`
}

// RatioSource tells which input a plan ratio was resolved from.
type RatioSource string

const (
	RatioManual   RatioSource = "manual"
	RatioMeasured RatioSource = "measured"
	RatioDefault  RatioSource = "default"
)

// PlanAnalysis projects the activity volume needed to reach the goals.
type PlanAnalysis struct {
	Year         int  `json:"year,omitempty"`
	IsHistorical bool `json:"isHistorical"`

	AnnualBillingTargetUSD float64 `json:"annualBillingTargetUSD"`
	HonorariumTargetUSD    float64 `json:"honorariumTargetUSD"`
	EffectiveTicketUSD     float64 `json:"effectiveTicketUSD"`
	TicketIsManual         bool    `json:"ticketIsManual"`
	CommissionRatePct      float64 `json:"commissionRatePct"`
	TransactionsNeeded     float64 `json:"transactionsNeeded"`

	// IsDataReliable is the 16-week / 5-side gate of the measured ratios.
	IsDataReliable bool `json:"isDataReliable"`

	EffectiveRatio float64     `json:"effectiveRatio"`
	RatioSource    RatioSource `json:"ratioSource"`
	MeasuredRatio  float64     `json:"measuredRatio"`

	CaptationRatio       float64     `json:"captationRatio"`
	CaptationRatioSource RatioSource `json:"captationRatioSource"`

	ClosingRatePct        float64 `json:"closingRatePct"`
	ClosingRateIsMeasured bool    `json:"closingRateIsMeasured"`

	CommercialWeeks     float64 `json:"commercialWeeks"`
	PLPBNeededYear      float64 `json:"plpbNeededYear"`
	RealCriticalNumber  float64 `json:"realCriticalNumber"`
	CurrentWeeklyPLPB   float64 `json:"currentWeeklyPLPB"`
	CriticalProgressPct float64 `json:"criticalProgressPct"`
	IsOnTrack           bool    `json:"isOnTrack"`
	BillingToDateUSD    float64 `json:"billingToDateUSD"`
	BillingProgressPct  float64 `json:"billingProgressPct"`
	RemainingBillingUSD float64 `json:"remainingBillingUSD"`

	Captation CaptationAlignment `json:"captation"`
}

// CaptationAlignment compares the captation goal with the billing plan.
type CaptationAlignment struct {
	HasGoal                  bool    `json:"hasGoal"`
	GoalQty                  int     `json:"goalQty"`
	Weeks                    float64 `json:"weeks"`
	WeeklyCaptationsNeeded   float64 `json:"weeklyCaptationsNeeded"`
	WeeklyPreListingsNeeded  float64 `json:"weeklyPreListingsNeeded"`
	IsAligned                bool    `json:"isAligned"`
	ExcessOverCriticalNumber float64 `json:"excessOverCriticalNumber"`
}

// PerformanceMetrics is the current week's traction.
type PerformanceMetrics struct {
	WeekStart           string `json:"weekStart"`
	WeekEnd             string `json:"weekEnd"`
	GreenMeetingsWeekly int    `json:"greenMeetingsWeekly"`
	WeeklyPLDone        int    `json:"weeklyPLDone"`
	WeeklyPBDone        int    `json:"weeklyPBDone"`
	WeeklyVisitsDone    int    `json:"weeklyVisitsDone"`
	TotalWeeklyTraction int    `json:"totalWeeklyTraction"`
	TotalSidesYear      int    `json:"totalSidesYear"`
}

// HomeDisplayMetrics is the home dashboard view: metrics, plan and
// performance merged under the names the dashboard shows.
type HomeDisplayMetrics struct {
	Year int `json:"year"`

	Billing          float64     `json:"billing"`
	Honorarium       float64     `json:"honorarium"`
	Sides            int         `json:"sides"`
	Closings         int         `json:"closings"`
	AvgTicket        float64     `json:"avgTicket"`
	ActiveListings   int         `json:"activeListings"`
	Effectiveness    float64     `json:"effectiveness"`
	Ratio            float64     `json:"ratio"`
	RatioSource      RatioSource `json:"ratioSource"`
	CriticalNumber   float64     `json:"criticalNumber"`
	WeeklyGreen      int         `json:"weeklyGreen"`
	WeeklyPL         int         `json:"weeklyPL"`
	WeeklyPB         int         `json:"weeklyPB"`
	WeeklyTraction   int         `json:"weeklyTraction"`
	TractionPct      float64     `json:"tractionPct"`
	BillingGoal      float64     `json:"billingGoal"`
	BillingProgress  float64     `json:"billingProgress"`
	CaptationAligned bool        `json:"captationAligned"`
	DataReliable     bool        `json:"dataReliable"`
}

// TeamMember is an agent supervised by a mother account.
type TeamMember struct {
	AgentID string `json:"agentId"`
	Name    string `json:"name"`
}

// TeamMemberSummary is one agent's line in the team dashboard.
type TeamMemberSummary struct {
	TeamMember
	Home  *HomeDisplayMetrics `json:"home,omitempty"`
	Error string              `json:"error,omitempty"`
}

// TeamSummary aggregates the home metrics of a mother account's team.
type TeamSummary struct {
	MotherID     string              `json:"motherId"`
	Members      []TeamMemberSummary `json:"members"`
	TotalBilling float64             `json:"totalBilling"`
	TotalSides   int                 `json:"totalSides"`
	TotalWeekly  int                 `json:"totalWeeklyTraction"`
}

// ExchangeRateQuote is a live ARS per USD quote.
type ExchangeRateQuote struct {
	Source    string  `json:"source"`
	Buy       float64 `json:"buy"`
	Sell      float64 `json:"sell"`
	Rate      float64 `json:"rate"`
	FetchedAt string  `json:"fetchedAt"`
}

// PipelineValue is the probability-weighted commission of open inventory
// and active searches under one dashboard's close probabilities.
type PipelineValue struct {
	Profile              string  `json:"profile"`
	ValueUSD             float64 `json:"valueUsd"`
	ExchangeRate         float64 `json:"exchangeRate"`
	InventoryProbability float64 `json:"inventoryProbability"`
	SearchProbability    float64 `json:"searchProbability"`
}
