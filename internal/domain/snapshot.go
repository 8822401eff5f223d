package domain

// Versions stamps each collection of a record store. A collection's version
// changes whenever its slice is replaced; unchanged versions guarantee the
// slice is the same, unmodified backing array.
type Versions struct {
	Closings   uint64 `json:"closings"`
	Activities uint64 `json:"activities"`
	Properties uint64 `json:"properties"`
	Visits     uint64 `json:"visits"`
	Buyers     uint64 `json:"buyers"`
	Sellers    uint64 `json:"sellers"`
	Searches   uint64 `json:"searches"`
	Goals      uint64 `json:"goals"`
	Year       uint64 `json:"year"`
}

// Snapshot is an immutable view of one agent's records. Callers must not
// modify the slices or the goals it references.
type Snapshot struct {
	Closings     []Closing
	Activities   []Activity
	Properties   []Property
	Visits       []Visit
	Buyers       []Buyer
	Sellers      []Seller
	Searches     []BuyerSearch
	Goals        GoalsByYear
	DefaultGoals FinancialGoals
	SelectedYear int
	Versions     Versions
}

// GoalsFor resolves the goals of year through the explicit default.
func (s *Snapshot) GoalsFor(year int) *FinancialGoals {
	return s.Goals.GetOrDefault(year, s.DefaultGoals)
}

// RecordSet is the full record set of one agent, as loaded from a backend.
type RecordSet struct {
	Closings   []Closing
	Activities []Activity
	Properties []Property
	Visits     []Visit
	Buyers     []Buyer
	Sellers    []Seller
	Searches   []BuyerSearch
	Goals      []FinancialGoals
}

// WorkspaceStatus reports the load state of one agent's record store.
type WorkspaceStatus struct {
	AgentID      string   `json:"agentId"`
	Loaded       bool     `json:"loaded"`
	Error        string   `json:"error,omitempty"`
	SelectedYear int      `json:"selectedYear"`
	Versions     Versions `json:"versions"`
}
