package supabase

import "github.com/boddenberg/broker-crm-bfa-go/internal/domain"

// ============================================================
// Table rows: PostgREST column names mapped to the domain
// ============================================================

type activityRow struct {
	ID          string `json:"id"`
	AgentID     string `json:"agent_id"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	ContactID   string `json:"contact_id,omitempty"`
	ContactName string `json:"contact_name,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func (r activityRow) toDomain() domain.Activity {
	return domain.Activity{
		ID:          r.ID,
		Date:        r.Date,
		Type:        domain.ActivityType(r.Type),
		ContactID:   r.ContactID,
		ContactName: r.ContactName,
		Notes:       r.Notes,
	}
}

func activityToRow(agentID string, a *domain.Activity) activityRow {
	return activityRow{
		ID:          a.ID,
		AgentID:     agentID,
		Date:        a.Date,
		Type:        string(a.Type),
		ContactID:   a.ContactID,
		ContactName: a.ContactName,
		Notes:       a.Notes,
	}
}

type closingRow struct {
	ID                   string  `json:"id"`
	AgentID              string  `json:"agent_id"`
	PropertyID           *string `json:"property_id"`
	ManualProperty       string  `json:"manual_property,omitempty"`
	BuyerClientID        *string `json:"buyer_client_id"`
	ManualBuyer          string  `json:"manual_buyer,omitempty"`
	Date                 string  `json:"date"`
	Currency             string  `json:"currency"`
	SalePrice            float64 `json:"sale_price"`
	CommissionPercent    float64 `json:"commission_percent"`
	Sides                int     `json:"sides"`
	SubSplitPercent      float64 `json:"sub_split_percent"`
	AgentHonorarium      float64 `json:"agent_honorarium"`
	TotalBilling         float64 `json:"total_billing"`
	OperationType        string  `json:"operation_type"`
	ExchangeRateSnapshot float64 `json:"exchange_rate_snapshot,omitempty"`
}

func (r closingRow) toDomain() domain.Closing {
	return domain.Closing{
		ID:                   r.ID,
		PropertyID:           deref(r.PropertyID),
		ManualProperty:       r.ManualProperty,
		BuyerClientID:        deref(r.BuyerClientID),
		ManualBuyer:          r.ManualBuyer,
		Date:                 r.Date,
		Currency:             domain.Currency(r.Currency),
		SalePrice:            r.SalePrice,
		CommissionPercent:    r.CommissionPercent,
		Sides:                r.Sides,
		SubSplitPercent:      r.SubSplitPercent,
		AgentHonorarium:      r.AgentHonorarium,
		TotalBilling:         r.TotalBilling,
		OperationType:        domain.OperationType(r.OperationType),
		ExchangeRateSnapshot: r.ExchangeRateSnapshot,
	}
}

func closingToRow(agentID string, c *domain.Closing) closingRow {
	return closingRow{
		ID:                   c.ID,
		AgentID:              agentID,
		PropertyID:           ref(c.PropertyID),
		ManualProperty:       c.ManualProperty,
		BuyerClientID:        ref(c.BuyerClientID),
		ManualBuyer:          c.ManualBuyer,
		Date:                 c.Date,
		Currency:             string(c.Currency),
		SalePrice:            c.SalePrice,
		CommissionPercent:    c.CommissionPercent,
		Sides:                c.Sides,
		SubSplitPercent:      c.SubSplitPercent,
		AgentHonorarium:      c.AgentHonorarium,
		TotalBilling:         c.TotalBilling,
		OperationType:        string(c.OperationType),
		ExchangeRateSnapshot: c.ExchangeRateSnapshot,
	}
}

type propertyRow struct {
	ID        string  `json:"id"`
	AgentID   string  `json:"agent_id"`
	SellerID  *string `json:"seller_id"`
	Title     string  `json:"title"`
	Address   string  `json:"address,omitempty"`
	Status    string  `json:"status"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	CreatedAt string  `json:"created_at,omitempty"`
}

func (r propertyRow) toDomain() domain.Property {
	return domain.Property{
		ID:        r.ID,
		SellerID:  deref(r.SellerID),
		Title:     r.Title,
		Address:   r.Address,
		Status:    domain.PropertyStatus(r.Status),
		Price:     r.Price,
		Currency:  domain.Currency(r.Currency),
		CreatedAt: r.CreatedAt,
	}
}

func propertyToRow(agentID string, p *domain.Property) propertyRow {
	return propertyRow{
		ID:        p.ID,
		AgentID:   agentID,
		SellerID:  ref(p.SellerID),
		Title:     p.Title,
		Address:   p.Address,
		Status:    string(p.Status),
		Price:     p.Price,
		Currency:  string(p.Currency),
		CreatedAt: p.CreatedAt,
	}
}

type visitRow struct {
	ID            string  `json:"id"`
	AgentID       string  `json:"agent_id"`
	PropertyID    string  `json:"property_id"`
	BuyerClientID *string `json:"buyer_client_id"`
	Date          string  `json:"date"`
	Status        string  `json:"status"`
	Feedback      string  `json:"feedback,omitempty"`
	NextSteps     string  `json:"next_steps,omitempty"`
}

func (r visitRow) toDomain() domain.Visit {
	return domain.Visit{
		ID:            r.ID,
		PropertyID:    r.PropertyID,
		BuyerClientID: deref(r.BuyerClientID),
		Date:          r.Date,
		Status:        domain.VisitStatus(r.Status),
		Feedback:      r.Feedback,
		NextSteps:     r.NextSteps,
	}
}

func visitToRow(agentID string, v *domain.Visit) visitRow {
	return visitRow{
		ID:            v.ID,
		AgentID:       agentID,
		PropertyID:    v.PropertyID,
		BuyerClientID: ref(v.BuyerClientID),
		Date:          v.Date,
		Status:        string(v.Status),
		Feedback:      v.Feedback,
		NextSteps:     v.NextSteps,
	}
}

// clientRow backs both the buyer_clients and seller_clients tables.
type clientRow struct {
	ID      string `json:"id"`
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

type searchRow struct {
	ID            string  `json:"id"`
	AgentID       string  `json:"agent_id"`
	BuyerClientID string  `json:"buyer_client_id"`
	Zone          string  `json:"zone,omitempty"`
	BudgetMin     float64 `json:"budget_min"`
	BudgetMax     float64 `json:"budget_max"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
}

func (r searchRow) toDomain() domain.BuyerSearch {
	return domain.BuyerSearch{
		ID:            r.ID,
		BuyerClientID: r.BuyerClientID,
		Zone:          r.Zone,
		Budget:        domain.Budget{Min: r.BudgetMin, Max: r.BudgetMax, Currency: domain.Currency(r.Currency)},
		Status:        domain.SearchStatus(r.Status),
	}
}

func searchToRow(agentID string, s *domain.BuyerSearch) searchRow {
	return searchRow{
		ID:            s.ID,
		AgentID:       agentID,
		BuyerClientID: s.BuyerClientID,
		Zone:          s.Zone,
		BudgetMin:     s.Budget.Min,
		BudgetMax:     s.Budget.Max,
		Currency:      string(s.Budget.Currency),
		Status:        string(s.Status),
	}
}

type goalsRow struct {
	AgentID                string  `json:"agent_id"`
	Year                   int     `json:"year"`
	AnnualBilling          float64 `json:"annual_billing"`
	AverageTicket          float64 `json:"average_ticket"`
	IsManualTicket         bool    `json:"is_manual_ticket"`
	AverageCommission      float64 `json:"average_commission"`
	CommissionSplit        float64 `json:"commission_split"`
	CommercialWeeks        float64 `json:"commercial_weeks"`
	ManualRatio            float64 `json:"manual_ratio"`
	IsManualRatio          bool    `json:"is_manual_ratio"`
	ExchangeRate           float64 `json:"exchange_rate"`
	CaptationGoalQty       int     `json:"captation_goal_qty"`
	CaptationStartDate     *string `json:"captation_start_date"`
	CaptationEndDate       *string `json:"captation_end_date"`
	ManualCaptationRatio   float64 `json:"manual_captation_ratio"`
	IsManualCaptationRatio bool    `json:"is_manual_captation_ratio"`
}

func (r goalsRow) toDomain() domain.FinancialGoals {
	return domain.FinancialGoals{
		Year:                   r.Year,
		AnnualBilling:          r.AnnualBilling,
		AverageTicket:          r.AverageTicket,
		IsManualTicket:         r.IsManualTicket,
		AverageCommission:      r.AverageCommission,
		CommissionSplit:        r.CommissionSplit,
		CommercialWeeks:        r.CommercialWeeks,
		ManualRatio:            r.ManualRatio,
		IsManualRatio:          r.IsManualRatio,
		ExchangeRate:           r.ExchangeRate,
		CaptationGoalQty:       r.CaptationGoalQty,
		CaptationStartDate:     deref(r.CaptationStartDate),
		CaptationEndDate:       deref(r.CaptationEndDate),
		ManualCaptationRatio:   r.ManualCaptationRatio,
		IsManualCaptationRatio: r.IsManualCaptationRatio,
	}
}

func goalsToRow(agentID string, g *domain.FinancialGoals) goalsRow {
	return goalsRow{
		AgentID:                agentID,
		Year:                   g.Year,
		AnnualBilling:          g.AnnualBilling,
		AverageTicket:          g.AverageTicket,
		IsManualTicket:         g.IsManualTicket,
		AverageCommission:      g.AverageCommission,
		CommissionSplit:        g.CommissionSplit,
		CommercialWeeks:        g.CommercialWeeks,
		ManualRatio:            g.ManualRatio,
		IsManualRatio:          g.IsManualRatio,
		ExchangeRate:           g.ExchangeRate,
		CaptationGoalQty:       g.CaptationGoalQty,
		CaptationStartDate:     ref(g.CaptationStartDate),
		CaptationEndDate:       ref(g.CaptationEndDate),
		ManualCaptationRatio:   g.ManualCaptationRatio,
		IsManualCaptationRatio: g.IsManualCaptationRatio,
	}
}

type teamMemberRow struct {
	MotherID string `json:"mother_id"`
	AgentID  string `json:"agent_id"`
	Name     string `json:"name"`
}

// ref maps empty strings to SQL NULL for optional foreign keys.
func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
