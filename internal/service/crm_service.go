package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/observability"
)

var crmTracer = otel.Tracer("service/crm")

const (
	minFiscalYear = 2000
	maxFiscalYear = 2100
)

// CRMService handles the record operations of one agent: activities,
// closings, properties, visits, clients, searches and goals.
type CRMService struct {
	workspaces *Workspaces
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewCRMService creates a new CRM service.
func NewCRMService(workspaces *Workspaces, metrics *observability.Metrics, logger *zap.Logger) *CRMService {
	return &CRMService{workspaces: workspaces, metrics: metrics, logger: logger, now: time.Now}
}

func (s *CRMService) snapshot(ctx context.Context, agentID string) (domain.Snapshot, error) {
	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return ws.Store.Snapshot(), nil
}

// ============================================================
// Activities
// ============================================================

// ListActivities returns the manual activities, newest first.
func (s *CRMService) ListActivities(ctx context.Context, agentID string) ([]domain.Activity, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.ListActivities")
	defer span.End()

	snap, err := s.snapshot(ctx, agentID)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(snap.Activities)
	slices.SortStableFunc(out, func(a, b domain.Activity) int { return strings.Compare(b.Date, a.Date) })
	return out, nil
}

func (s *CRMService) CreateActivity(ctx context.Context, agentID string, a domain.Activity) (*domain.Activity, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.CreateActivity")
	defer span.End()
	span.SetAttributes(attribute.String("agent.id", agentID), attribute.String("activity.type", string(a.Type)))

	if err := a.Validate(); err != nil {
		return nil, err
	}
	a.ID = uuid.New().String()
	a.SystemGenerated = false

	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if err := ws.Store.AddActivity(ctx, a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *CRMService) DeleteActivity(ctx context.Context, agentID, id string) error {
	ctx, span := crmTracer.Start(ctx, "CRMService.DeleteActivity")
	defer span.End()

	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return err
	}
	return ws.Store.DeleteActivity(ctx, id)
}

// ============================================================
// Closings
// ============================================================

// ListClosings returns every closing, newest first.
func (s *CRMService) ListClosings(ctx context.Context, agentID string) ([]domain.Closing, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.ListClosings")
	defer span.End()

	snap, err := s.snapshot(ctx, agentID)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(snap.Closings)
	slices.SortStableFunc(out, func(a, b domain.Closing) int { return strings.Compare(b.Date, a.Date) })
	return out, nil
}

// CreateClosing validates and stores a closing. ARS closings without a
// rate snapshot capture the rate configured for their year, so later goal
// edits of that year do not lose the rate the deal was made at.
func (s *CRMService) CreateClosing(ctx context.Context, agentID string, c domain.Closing) (*domain.Closing, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.CreateClosing")
	defer span.End()
	span.SetAttributes(attribute.String("agent.id", agentID))

	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.CommissionPercent < 0 || c.CommissionPercent > 100 {
		return nil, &domain.ErrValidation{Field: "commissionPercent", Message: "must be between 0 and 100"}
	}
	if c.SubSplitPercent < 0 || c.SubSplitPercent > 100 {
		return nil, &domain.ErrValidation{Field: "subSplitPercent", Message: "must be between 0 and 100"}
	}

	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}

	c.ID = uuid.New().String()
	if c.TotalBilling == 0 {
		c.TotalBilling = c.SalePrice * c.CommissionPercent / 100
	}
	if c.Currency == domain.CurrencyARS && c.ExchangeRateSnapshot == 0 {
		snap := ws.Store.Snapshot()
		year, _ := domain.YearOf(c.Date)
		c.ExchangeRateSnapshot = snap.GoalsFor(year).ExchangeRate
	}

	if err := ws.Store.AddClosing(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("closing recorded",
		zap.String("agent_id", agentID),
		zap.String("closing_id", c.ID),
		zap.Int("sides", c.Sides),
	)
	return &c, nil
}

func (s *CRMService) DeleteClosing(ctx context.Context, agentID, id string) error {
	ctx, span := crmTracer.Start(ctx, "CRMService.DeleteClosing")
	defer span.End()

	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return err
	}
	return ws.Store.DeleteClosing(ctx, id)
}

// ============================================================
// Properties
// ============================================================

func (s *CRMService) ListProperties(ctx context.Context, agentID string) ([]domain.Property, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.ListProperties")
	defer span.End()

	snap, err := s.snapshot(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.Properties), nil
}

// CreateProperty stores a new listing. Status defaults to disponible and
// currency to USD; CreatedAt is stamped now and dates the listing activity.
func (s *CRMService) CreateProperty(ctx context.Context, agentID string, p domain.Property) (*domain.Property, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.CreateProperty")
	defer span.End()

	if strings.TrimSpace(p.Title) == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "is required"}
	}
	if p.Status == "" {
		p.Status = domain.PropertyAvailable
	}
	if !p.Status.IsValid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown property status"}
	}
	if p.Currency == "" {
		p.Currency = domain.CurrencyUSD
	}
	if p.Currency != domain.CurrencyUSD && p.Currency != domain.CurrencyARS {
		return nil, &domain.ErrValidation{Field: "currency", Message: "must be USD or ARS"}
	}
	if p.Price < 0 {
		return nil, &domain.ErrValidation{Field: "price", Message: "must not be negative"}
	}

	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if p.SellerID != "" && !hasSeller(ws.Store.Snapshot(), p.SellerID) {
		return nil, &domain.ErrNotFound{Resource: "seller", ID: p.SellerID}
	}

	p.ID = uuid.New().String()
	p.CreatedAt = s.now().UTC().Format(time.RFC3339)
	if err := ws.Store.AddProperty(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *CRMService) SetPropertyStatus(ctx context.Context, agentID, id string, status domain.PropertyStatus) (*domain.Property, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.SetPropertyStatus")
	defer span.End()
	span.SetAttributes(attribute.String("property.status", string(status)))

	if !status.IsValid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown property status"}
	}
	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return ws.Store.SetPropertyStatus(ctx, id, status)
}

// ============================================================
// Visits
// ============================================================

func (s *CRMService) ListVisits(ctx context.Context, agentID string) ([]domain.Visit, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.ListVisits")
	defer span.End()

	snap, err := s.snapshot(ctx, agentID)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(snap.Visits)
	slices.SortStableFunc(out, func(a, b domain.Visit) int { return strings.Compare(b.Date, a.Date) })
	return out, nil
}

// ScheduleVisit stores a pending visit to one of the agent's properties.
func (s *CRMService) ScheduleVisit(ctx context.Context, agentID string, v domain.Visit) (*domain.Visit, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.ScheduleVisit")
	defer span.End()

	if _, ok := domain.YearOf(v.Date); !ok {
		return nil, &domain.ErrValidation{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	if v.PropertyID == "" {
		return nil, &domain.ErrValidation{Field: "propertyId", Message: "is required"}
	}
	if v.Status == "" {
		v.Status = domain.VisitPending
	}
	if !v.Status.IsValid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown visit status"}
	}

	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	snap := ws.Store.Snapshot()
	if !hasProperty(snap, v.PropertyID) {
		return nil, &domain.ErrNotFound{Resource: "property", ID: v.PropertyID}
	}
	if v.BuyerClientID != "" && !hasBuyer(snap, v.BuyerClientID) {
		return nil, &domain.ErrNotFound{Resource: "buyer", ID: v.BuyerClientID}
	}

	v.ID = uuid.New().String()
	if err := ws.Store.AddVisit(ctx, v); err != nil {
		return nil, err
	}
	return &v, nil
}

// CompleteVisit marks a visit as done. Completed visits appear in the
// activity feed as visita activities.
func (s *CRMService) CompleteVisit(ctx context.Context, agentID, id, feedback, nextSteps string) (*domain.Visit, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.CompleteVisit")
	defer span.End()

	return s.transitionVisit(ctx, agentID, id, func(v *domain.Visit) {
		v.Status = domain.VisitCompleted
		v.Feedback = feedback
		v.NextSteps = nextSteps
	})
}

func (s *CRMService) CancelVisit(ctx context.Context, agentID, id string) (*domain.Visit, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.CancelVisit")
	defer span.End()

	return s.transitionVisit(ctx, agentID, id, func(v *domain.Visit) {
		v.Status = domain.VisitCancelled
	})
}

// transitionVisit applies fn to a pending visit. Completed and cancelled
// visits are final.
func (s *CRMService) transitionVisit(ctx context.Context, agentID, id string, fn func(*domain.Visit)) (*domain.Visit, error) {
	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	// The status check runs under the store's write lock, so two racing
	// transitions cannot both see the visit as pending.
	return ws.Store.UpdateVisit(ctx, id, func(v *domain.Visit) error {
		if v.Status != domain.VisitPending {
			return &domain.ErrConflict{Message: "visit is already " + string(v.Status)}
		}
		fn(v)
		return nil
	})
}

// ============================================================
// Clients
// ============================================================

func (s *CRMService) ListBuyers(ctx context.Context, agentID string) ([]domain.Buyer, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.ListBuyers")
	defer span.End()

	snap, err := s.snapshot(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.Buyers), nil
}

func (s *CRMService) CreateBuyer(ctx context.Context, agentID string, b domain.Buyer) (*domain.Buyer, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.CreateBuyer")
	defer span.End()

	if strings.TrimSpace(b.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "is required"}
	}
	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	b.ID = uuid.New().String()
	if err := ws.Store.AddBuyer(ctx, b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *CRMService) ListSellers(ctx context.Context, agentID string) ([]domain.Seller, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.ListSellers")
	defer span.End()

	snap, err := s.snapshot(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.Sellers), nil
}

func (s *CRMService) CreateSeller(ctx context.Context, agentID string, sl domain.Seller) (*domain.Seller, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.CreateSeller")
	defer span.End()

	if strings.TrimSpace(sl.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "is required"}
	}
	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	sl.ID = uuid.New().String()
	if err := ws.Store.AddSeller(ctx, sl); err != nil {
		return nil, err
	}
	return &sl, nil
}

// ============================================================
// Buyer searches
// ============================================================

func (s *CRMService) ListSearches(ctx context.Context, agentID string) ([]domain.BuyerSearch, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.ListSearches")
	defer span.End()

	snap, err := s.snapshot(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.Searches), nil
}

func (s *CRMService) CreateSearch(ctx context.Context, agentID string, bs domain.BuyerSearch) (*domain.BuyerSearch, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.CreateSearch")
	defer span.End()

	if bs.BuyerClientID == "" {
		return nil, &domain.ErrValidation{Field: "buyerClientId", Message: "is required"}
	}
	if bs.Status == "" {
		bs.Status = domain.SearchActive
	}
	if !bs.Status.IsValid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown search status"}
	}
	if bs.Budget.Currency == "" {
		bs.Budget.Currency = domain.CurrencyUSD
	}
	if bs.Budget.Min < 0 || bs.Budget.Max < bs.Budget.Min {
		return nil, &domain.ErrValidation{Field: "budget", Message: "max must not be below min"}
	}

	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if !hasBuyer(ws.Store.Snapshot(), bs.BuyerClientID) {
		return nil, &domain.ErrNotFound{Resource: "buyer", ID: bs.BuyerClientID}
	}
	bs.ID = uuid.New().String()
	if err := ws.Store.AddSearch(ctx, bs); err != nil {
		return nil, err
	}
	return &bs, nil
}

func (s *CRMService) SetSearchStatus(ctx context.Context, agentID, id string, status domain.SearchStatus) (*domain.BuyerSearch, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.SetSearchStatus")
	defer span.End()

	if !status.IsValid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown search status"}
	}
	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return ws.Store.SetSearchStatus(ctx, id, status)
}

// ============================================================
// Goals and fiscal year
// ============================================================

// GetGoals returns the goals of year, or the defaults when none are stored.
func (s *CRMService) GetGoals(ctx context.Context, agentID string, year int) (*domain.GoalsState, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.GetGoals")
	defer span.End()

	if err := validateYear(year); err != nil {
		return nil, err
	}
	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	snap := ws.Store.Snapshot()
	_, stored := snap.Goals.Lookup(year)
	return &domain.GoalsState{
		Goals:   *snap.GoalsFor(year),
		Stored:  stored,
		Unsaved: ws.Store.Unsaved(year),
	}, nil
}

// UpdateGoals edits the goals of year in memory. Analytics reflect the
// edit at once; SaveGoals persists it.
func (s *CRMService) UpdateGoals(ctx context.Context, agentID string, year int, g domain.FinancialGoals) (*domain.GoalsState, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.UpdateGoals")
	defer span.End()

	if err := validateYear(year); err != nil {
		return nil, err
	}
	g.Year = year
	if err := g.Validate(); err != nil {
		return nil, err
	}
	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	updated := ws.Store.UpdateGoals(g)
	return &domain.GoalsState{Goals: *updated, Stored: true, Unsaved: true}, nil
}

func (s *CRMService) SaveGoals(ctx context.Context, agentID string, year int) (*domain.GoalsState, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.SaveGoals")
	defer span.End()

	if err := validateYear(year); err != nil {
		return nil, err
	}
	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	saved, err := ws.Store.SaveGoals(ctx, year)
	if err != nil {
		return nil, err
	}
	s.logger.Info("goals saved", zap.String("agent_id", agentID), zap.Int("year", year))
	return &domain.GoalsState{Goals: *saved, Stored: true}, nil
}

// SelectYear switches the fiscal year the dashboards show.
func (s *CRMService) SelectYear(ctx context.Context, agentID string, year int) (*domain.WorkspaceStatus, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.SelectYear")
	defer span.End()

	if err := validateYear(year); err != nil {
		return nil, err
	}
	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	ws.Store.SelectYear(year)
	return workspaceStatus(ws), nil
}

// Reload refetches the agent's records, clearing a previous load error.
func (s *CRMService) Reload(ctx context.Context, agentID string) (*domain.WorkspaceStatus, error) {
	ctx, span := crmTracer.Start(ctx, "CRMService.Reload")
	defer span.End()

	ws, err := s.workspaces.Reload(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return workspaceStatus(ws), nil
}

// Status reports the agent's store state, including the last write error.
func (s *CRMService) Status(ctx context.Context, agentID string) (*domain.WorkspaceStatus, error) {
	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return workspaceStatus(ws), nil
}

func workspaceStatus(ws *Workspace) *domain.WorkspaceStatus {
	snap := ws.Store.Snapshot()
	st := &domain.WorkspaceStatus{
		AgentID:      ws.Store.AgentID(),
		Loaded:       ws.Store.Loaded(),
		SelectedYear: snap.SelectedYear,
		Versions:     snap.Versions,
	}
	if err := ws.Store.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}

func validateYear(year int) error {
	if year < minFiscalYear || year > maxFiscalYear {
		return &domain.ErrValidation{Field: "year", Message: "must be between 2000 and 2100"}
	}
	return nil
}

func hasProperty(snap domain.Snapshot, id string) bool {
	return slices.ContainsFunc(snap.Properties, func(p domain.Property) bool { return p.ID == id })
}

func hasBuyer(snap domain.Snapshot, id string) bool {
	return slices.ContainsFunc(snap.Buyers, func(b domain.Buyer) bool { return b.ID == id })
}

func hasSeller(snap domain.Snapshot, id string) bool {
	return slices.ContainsFunc(snap.Sellers, func(sl domain.Seller) bool { return sl.ID == id })
}
