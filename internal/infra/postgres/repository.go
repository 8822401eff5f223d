package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository implements port.RecordRepository and port.TeamDirectory on
// PostgreSQL.
type Repository struct {
	db DB
}

// NewRepository wraps a pool.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

func dbErr(op string, err error) error {
	return &domain.ErrExternalService{Service: "postgres/" + op, Err: err}
}

// LoadRecords reads every table of the agent concurrently.
func (r *Repository) LoadRecords(ctx context.Context, agentID string) (*domain.RecordSet, error) {
	ctx, span := tracer.Start(ctx, "Postgres.LoadRecords")
	defer span.End()
	span.SetAttributes(attribute.String("agent.id", agentID))

	set := &domain.RecordSet{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { set.Activities, err = r.loadActivities(gctx, agentID); return })
	g.Go(func() (err error) { set.Closings, err = r.loadClosings(gctx, agentID); return })
	g.Go(func() (err error) { set.Properties, err = r.loadProperties(gctx, agentID); return })
	g.Go(func() (err error) { set.Visits, err = r.loadVisits(gctx, agentID); return })
	g.Go(func() (err error) { set.Buyers, set.Sellers, err = r.loadClients(gctx, agentID); return })
	g.Go(func() (err error) { set.Searches, err = r.loadSearches(gctx, agentID); return })
	g.Go(func() (err error) { set.Goals, err = r.loadGoals(gctx, agentID); return })
	if err := g.Wait(); err != nil {
		return nil, dbErr("load", err)
	}
	return set, nil
}

func (r *Repository) loadActivities(ctx context.Context, agentID string) ([]domain.Activity, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, date, type, COALESCE(contact_id, ''), COALESCE(contact_name, ''), COALESCE(notes, '')
		FROM activities WHERE agent_id = $1 ORDER BY date DESC`, agentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Activity, error) {
		var a domain.Activity
		var date time.Time
		err := row.Scan(&a.ID, &date, &a.Type, &a.ContactID, &a.ContactName, &a.Notes)
		a.Date = date.Format(domain.DateLayout)
		return a, err
	})
}

func (r *Repository) loadClosings(ctx context.Context, agentID string) ([]domain.Closing, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, COALESCE(property_id, ''), COALESCE(manual_property, ''),
			COALESCE(buyer_client_id, ''), COALESCE(manual_buyer, ''), date, currency,
			sale_price, commission_percent, sides, sub_split_percent, agent_honorarium,
			total_billing, operation_type, exchange_rate_snapshot
		FROM closings WHERE agent_id = $1 ORDER BY date DESC`, agentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Closing, error) {
		var c domain.Closing
		var date time.Time
		err := row.Scan(&c.ID, &c.PropertyID, &c.ManualProperty, &c.BuyerClientID, &c.ManualBuyer,
			&date, &c.Currency, &c.SalePrice, &c.CommissionPercent, &c.Sides, &c.SubSplitPercent,
			&c.AgentHonorarium, &c.TotalBilling, &c.OperationType, &c.ExchangeRateSnapshot)
		c.Date = date.Format(domain.DateLayout)
		return c, err
	})
}

func (r *Repository) loadProperties(ctx context.Context, agentID string) ([]domain.Property, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, COALESCE(seller_id, ''), title, COALESCE(address, ''), status, price, currency, created_at
		FROM properties WHERE agent_id = $1 ORDER BY created_at DESC`, agentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Property, error) {
		var p domain.Property
		var created time.Time
		err := row.Scan(&p.ID, &p.SellerID, &p.Title, &p.Address, &p.Status, &p.Price, &p.Currency, &created)
		p.CreatedAt = created.UTC().Format(time.RFC3339)
		return p, err
	})
}

func (r *Repository) loadVisits(ctx context.Context, agentID string) ([]domain.Visit, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, property_id, COALESCE(buyer_client_id, ''), date, status,
			COALESCE(feedback, ''), COALESCE(next_steps, '')
		FROM visits WHERE agent_id = $1 ORDER BY date DESC`, agentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Visit, error) {
		var v domain.Visit
		var date time.Time
		err := row.Scan(&v.ID, &v.PropertyID, &v.BuyerClientID, &date, &v.Status, &v.Feedback, &v.NextSteps)
		v.Date = date.Format(domain.DateLayout)
		return v, err
	})
}

func (r *Repository) loadClients(ctx context.Context, agentID string) ([]domain.Buyer, []domain.Seller, error) {
	const q = `SELECT id, name, COALESCE(phone, ''), COALESCE(email, '') FROM %s WHERE agent_id = $1 ORDER BY name`
	rows, err := r.db.Query(ctx, fmt.Sprintf(q, "buyer_clients"), agentID)
	if err != nil {
		return nil, nil, err
	}
	buyers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Buyer, error) {
		var b domain.Buyer
		err := row.Scan(&b.ID, &b.Name, &b.Phone, &b.Email)
		return b, err
	})
	if err != nil {
		return nil, nil, err
	}
	rows, err = r.db.Query(ctx, fmt.Sprintf(q, "seller_clients"), agentID)
	if err != nil {
		return nil, nil, err
	}
	sellers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Seller, error) {
		var s domain.Seller
		err := row.Scan(&s.ID, &s.Name, &s.Phone, &s.Email)
		return s, err
	})
	return buyers, sellers, err
}

func (r *Repository) loadSearches(ctx context.Context, agentID string) ([]domain.BuyerSearch, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, buyer_client_id, COALESCE(zone, ''), budget_min, budget_max, currency, status
		FROM buyer_searches WHERE agent_id = $1`, agentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.BuyerSearch, error) {
		var s domain.BuyerSearch
		err := row.Scan(&s.ID, &s.BuyerClientID, &s.Zone, &s.Budget.Min, &s.Budget.Max, &s.Budget.Currency, &s.Status)
		return s, err
	})
}

func (r *Repository) loadGoals(ctx context.Context, agentID string) ([]domain.FinancialGoals, error) {
	rows, err := r.db.Query(ctx, `
		SELECT year, annual_billing, average_ticket, is_manual_ticket, average_commission,
			commission_split, commercial_weeks, manual_ratio, is_manual_ratio, exchange_rate,
			captation_goal_qty, COALESCE(captation_start_date::text, ''), COALESCE(captation_end_date::text, ''),
			manual_captation_ratio, is_manual_captation_ratio
		FROM financial_goals WHERE agent_id = $1 ORDER BY year`, agentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.FinancialGoals, error) {
		var g domain.FinancialGoals
		err := row.Scan(&g.Year, &g.AnnualBilling, &g.AverageTicket, &g.IsManualTicket, &g.AverageCommission,
			&g.CommissionSplit, &g.CommercialWeeks, &g.ManualRatio, &g.IsManualRatio, &g.ExchangeRate,
			&g.CaptationGoalQty, &g.CaptationStartDate, &g.CaptationEndDate,
			&g.ManualCaptationRatio, &g.IsManualCaptationRatio)
		return g, err
	})
}

// exec runs one statement; when mustMatch is set, zero affected rows is a
// not-found error.
func (r *Repository) exec(ctx context.Context, op, resource, id string, mustMatch bool, sql string, args ...any) error {
	ctx, span := tracer.Start(ctx, "Postgres."+op)
	defer span.End()

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return dbErr(op, err)
	}
	if mustMatch && tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return nil
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *Repository) InsertActivity(ctx context.Context, agentID string, a *domain.Activity) error {
	return r.exec(ctx, "InsertActivity", "activity", a.ID, false, `
		INSERT INTO activities (id, agent_id, date, type, contact_id, contact_name, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, agentID, a.Date, string(a.Type), nullable(a.ContactID), nullable(a.ContactName), nullable(a.Notes))
}

func (r *Repository) DeleteActivity(ctx context.Context, agentID, id string) error {
	return r.exec(ctx, "DeleteActivity", "activity", id, true,
		`DELETE FROM activities WHERE id = $1 AND agent_id = $2`, id, agentID)
}

func (r *Repository) InsertClosing(ctx context.Context, agentID string, c *domain.Closing) error {
	return r.exec(ctx, "InsertClosing", "closing", c.ID, false, `
		INSERT INTO closings (id, agent_id, property_id, manual_property, buyer_client_id, manual_buyer,
			date, currency, sale_price, commission_percent, sides, sub_split_percent,
			agent_honorarium, total_billing, operation_type, exchange_rate_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		c.ID, agentID, nullable(c.PropertyID), nullable(c.ManualProperty), nullable(c.BuyerClientID),
		nullable(c.ManualBuyer), c.Date, string(c.Currency), c.SalePrice, c.CommissionPercent, c.Sides,
		c.SubSplitPercent, c.AgentHonorarium, c.TotalBilling, string(c.OperationType), c.ExchangeRateSnapshot)
}

func (r *Repository) DeleteClosing(ctx context.Context, agentID, id string) error {
	return r.exec(ctx, "DeleteClosing", "closing", id, true,
		`DELETE FROM closings WHERE id = $1 AND agent_id = $2`, id, agentID)
}

func (r *Repository) InsertProperty(ctx context.Context, agentID string, p *domain.Property) error {
	return r.exec(ctx, "InsertProperty", "property", p.ID, false, `
		INSERT INTO properties (id, agent_id, seller_id, title, address, status, price, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, agentID, nullable(p.SellerID), p.Title, nullable(p.Address), string(p.Status), p.Price,
		string(p.Currency), p.CreatedAt)
}

func (r *Repository) UpdatePropertyStatus(ctx context.Context, agentID, id string, status domain.PropertyStatus) error {
	return r.exec(ctx, "UpdatePropertyStatus", "property", id, true,
		`UPDATE properties SET status = $1 WHERE id = $2 AND agent_id = $3`, string(status), id, agentID)
}

func (r *Repository) InsertVisit(ctx context.Context, agentID string, v *domain.Visit) error {
	return r.exec(ctx, "InsertVisit", "visit", v.ID, false, `
		INSERT INTO visits (id, agent_id, property_id, buyer_client_id, date, status, feedback, next_steps)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		v.ID, agentID, v.PropertyID, nullable(v.BuyerClientID), v.Date, string(v.Status),
		nullable(v.Feedback), nullable(v.NextSteps))
}

func (r *Repository) UpdateVisit(ctx context.Context, agentID string, v *domain.Visit) error {
	return r.exec(ctx, "UpdateVisit", "visit", v.ID, true, `
		UPDATE visits SET status = $1, date = $2, feedback = $3, next_steps = $4
		WHERE id = $5 AND agent_id = $6`,
		string(v.Status), v.Date, nullable(v.Feedback), nullable(v.NextSteps), v.ID, agentID)
}

func (r *Repository) InsertBuyer(ctx context.Context, agentID string, b *domain.Buyer) error {
	return r.exec(ctx, "InsertBuyer", "buyer", b.ID, false,
		`INSERT INTO buyer_clients (id, agent_id, name, phone, email) VALUES ($1, $2, $3, $4, $5)`,
		b.ID, agentID, b.Name, nullable(b.Phone), nullable(b.Email))
}

func (r *Repository) InsertSeller(ctx context.Context, agentID string, s *domain.Seller) error {
	return r.exec(ctx, "InsertSeller", "seller", s.ID, false,
		`INSERT INTO seller_clients (id, agent_id, name, phone, email) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, agentID, s.Name, nullable(s.Phone), nullable(s.Email))
}

func (r *Repository) InsertSearch(ctx context.Context, agentID string, s *domain.BuyerSearch) error {
	return r.exec(ctx, "InsertSearch", "search", s.ID, false, `
		INSERT INTO buyer_searches (id, agent_id, buyer_client_id, zone, budget_min, budget_max, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, agentID, s.BuyerClientID, nullable(s.Zone), s.Budget.Min, s.Budget.Max,
		string(s.Budget.Currency), string(s.Status))
}

func (r *Repository) UpdateSearchStatus(ctx context.Context, agentID, id string, status domain.SearchStatus) error {
	return r.exec(ctx, "UpdateSearchStatus", "search", id, true,
		`UPDATE buyer_searches SET status = $1 WHERE id = $2 AND agent_id = $3`, string(status), id, agentID)
}

// UpsertGoals writes the goals of one (agent, year) pair.
func (r *Repository) UpsertGoals(ctx context.Context, agentID string, g *domain.FinancialGoals) error {
	return r.exec(ctx, "UpsertGoals", "goals", fmt.Sprint(g.Year), false, `
		INSERT INTO financial_goals (agent_id, year, annual_billing, average_ticket, is_manual_ticket,
			average_commission, commission_split, commercial_weeks, manual_ratio, is_manual_ratio,
			exchange_rate, captation_goal_qty, captation_start_date, captation_end_date,
			manual_captation_ratio, is_manual_captation_ratio)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (agent_id, year) DO UPDATE SET
			annual_billing = EXCLUDED.annual_billing,
			average_ticket = EXCLUDED.average_ticket,
			is_manual_ticket = EXCLUDED.is_manual_ticket,
			average_commission = EXCLUDED.average_commission,
			commission_split = EXCLUDED.commission_split,
			commercial_weeks = EXCLUDED.commercial_weeks,
			manual_ratio = EXCLUDED.manual_ratio,
			is_manual_ratio = EXCLUDED.is_manual_ratio,
			exchange_rate = EXCLUDED.exchange_rate,
			captation_goal_qty = EXCLUDED.captation_goal_qty,
			captation_start_date = EXCLUDED.captation_start_date,
			captation_end_date = EXCLUDED.captation_end_date,
			manual_captation_ratio = EXCLUDED.manual_captation_ratio,
			is_manual_captation_ratio = EXCLUDED.is_manual_captation_ratio`,
		agentID, g.Year, g.AnnualBilling, g.AverageTicket, g.IsManualTicket, g.AverageCommission,
		g.CommissionSplit, g.CommercialWeeks, g.ManualRatio, g.IsManualRatio, g.ExchangeRate,
		g.CaptationGoalQty, nullable(g.CaptationStartDate), nullable(g.CaptationEndDate),
		g.ManualCaptationRatio, g.IsManualCaptationRatio)
}

// ListTeamMembers returns the agents supervised by motherID.
func (r *Repository) ListTeamMembers(ctx context.Context, motherID string) ([]domain.TeamMember, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListTeamMembers")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT agent_id, name FROM team_members WHERE mother_id = $1 ORDER BY name`, motherID)
	if err != nil {
		return nil, dbErr("team", err)
	}
	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TeamMember, error) {
		var m domain.TeamMember
		err := row.Scan(&m.AgentID, &m.Name)
		return m, err
	})
	if err != nil {
		return nil, dbErr("team", err)
	}
	return members, nil
}

// Ping checks the connection, for the health endpoint.
func (r *Repository) Ping(ctx context.Context) error {
	return r.exec(ctx, "Ping", "", "", false, "SELECT 1")
}
