package supabase

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

// ============================================================
// CRM records: CRUD via PostgREST, every row scoped by agent_id
// ============================================================

const (
	tableActivities = "activities"
	tableClosings   = "closings"
	tableProperties = "properties"
	tableVisits     = "visits"
	tableBuyers     = "buyer_clients"
	tableSellers    = "seller_clients"
	tableSearches   = "buyer_searches"
	tableGoals      = "financial_goals"
	tableTeam       = "team_members"
)

func byAgent(agentID string) string {
	return "agent_id=eq." + url.QueryEscape(agentID)
}

func byID(agentID, id string) string {
	return fmt.Sprintf("id=eq.%s&%s", url.QueryEscape(id), byAgent(agentID))
}

// LoadRecords fetches every table of the agent concurrently.
func (c *Client) LoadRecords(ctx context.Context, agentID string) (*domain.RecordSet, error) {
	ctx, span := tracer.Start(ctx, "Supabase.LoadRecords")
	defer span.End()
	span.SetAttributes(attribute.String("agent.id", agentID))

	var (
		activities []activityRow
		closings   []closingRow
		properties []propertyRow
		visits     []visitRow
		buyers     []clientRow
		sellers    []clientRow
		searches   []searchRow
		goals      []goalsRow
	)

	filter := byAgent(agentID)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getRows(gctx, tableActivities, tableActivities+"?"+filter+"&order=date.desc", &activities)
	})
	g.Go(func() error {
		return c.getRows(gctx, tableClosings, tableClosings+"?"+filter+"&order=date.desc", &closings)
	})
	g.Go(func() error {
		return c.getRows(gctx, tableProperties, tableProperties+"?"+filter+"&order=created_at.desc", &properties)
	})
	g.Go(func() error {
		return c.getRows(gctx, tableVisits, tableVisits+"?"+filter+"&order=date.desc", &visits)
	})
	g.Go(func() error {
		return c.getRows(gctx, tableBuyers, tableBuyers+"?"+filter+"&order=name.asc", &buyers)
	})
	g.Go(func() error {
		return c.getRows(gctx, tableSellers, tableSellers+"?"+filter+"&order=name.asc", &sellers)
	})
	g.Go(func() error {
		return c.getRows(gctx, tableSearches, tableSearches+"?"+filter, &searches)
	})
	g.Go(func() error {
		return c.getRows(gctx, tableGoals, tableGoals+"?"+filter+"&order=year.asc", &goals)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := &domain.RecordSet{
		Activities: make([]domain.Activity, 0, len(activities)),
		Closings:   make([]domain.Closing, 0, len(closings)),
		Properties: make([]domain.Property, 0, len(properties)),
		Visits:     make([]domain.Visit, 0, len(visits)),
		Buyers:     make([]domain.Buyer, 0, len(buyers)),
		Sellers:    make([]domain.Seller, 0, len(sellers)),
		Searches:   make([]domain.BuyerSearch, 0, len(searches)),
		Goals:      make([]domain.FinancialGoals, 0, len(goals)),
	}
	for _, r := range activities {
		set.Activities = append(set.Activities, r.toDomain())
	}
	for _, r := range closings {
		set.Closings = append(set.Closings, r.toDomain())
	}
	for _, r := range properties {
		set.Properties = append(set.Properties, r.toDomain())
	}
	for _, r := range visits {
		set.Visits = append(set.Visits, r.toDomain())
	}
	for _, r := range buyers {
		set.Buyers = append(set.Buyers, domain.Buyer{ID: r.ID, Name: r.Name, Phone: r.Phone, Email: r.Email})
	}
	for _, r := range sellers {
		set.Sellers = append(set.Sellers, domain.Seller{ID: r.ID, Name: r.Name, Phone: r.Phone, Email: r.Email})
	}
	for _, r := range searches {
		set.Searches = append(set.Searches, r.toDomain())
	}
	for _, r := range goals {
		set.Goals = append(set.Goals, r.toDomain())
	}
	return set, nil
}

// --- Activities ---

func (c *Client) InsertActivity(ctx context.Context, agentID string, a *domain.Activity) error {
	return c.doPost(ctx, "InsertActivity", tableActivities, activityToRow(agentID, a))
}

func (c *Client) DeleteActivity(ctx context.Context, agentID, id string) error {
	return c.doDelete(ctx, "DeleteActivity", tableActivities, byID(agentID, id))
}

// --- Closings ---

func (c *Client) InsertClosing(ctx context.Context, agentID string, cl *domain.Closing) error {
	return c.doPost(ctx, "InsertClosing", tableClosings, closingToRow(agentID, cl))
}

func (c *Client) DeleteClosing(ctx context.Context, agentID, id string) error {
	return c.doDelete(ctx, "DeleteClosing", tableClosings, byID(agentID, id))
}

// --- Properties ---

func (c *Client) InsertProperty(ctx context.Context, agentID string, p *domain.Property) error {
	return c.doPost(ctx, "InsertProperty", tableProperties, propertyToRow(agentID, p))
}

func (c *Client) UpdatePropertyStatus(ctx context.Context, agentID, id string, status domain.PropertyStatus) error {
	return c.doPatch(ctx, "UpdatePropertyStatus", tableProperties, byID(agentID, id), map[string]any{
		"status": string(status),
	})
}

// --- Visits ---

func (c *Client) InsertVisit(ctx context.Context, agentID string, v *domain.Visit) error {
	return c.doPost(ctx, "InsertVisit", tableVisits, visitToRow(agentID, v))
}

func (c *Client) UpdateVisit(ctx context.Context, agentID string, v *domain.Visit) error {
	return c.doPatch(ctx, "UpdateVisit", tableVisits, byID(agentID, v.ID), map[string]any{
		"status":     string(v.Status),
		"date":       v.Date,
		"feedback":   v.Feedback,
		"next_steps": v.NextSteps,
	})
}

// --- Clients ---

func (c *Client) InsertBuyer(ctx context.Context, agentID string, b *domain.Buyer) error {
	return c.doPost(ctx, "InsertBuyer", tableBuyers, clientRow{ID: b.ID, AgentID: agentID, Name: b.Name, Phone: b.Phone, Email: b.Email})
}

func (c *Client) InsertSeller(ctx context.Context, agentID string, s *domain.Seller) error {
	return c.doPost(ctx, "InsertSeller", tableSellers, clientRow{ID: s.ID, AgentID: agentID, Name: s.Name, Phone: s.Phone, Email: s.Email})
}

// --- Buyer searches ---

func (c *Client) InsertSearch(ctx context.Context, agentID string, s *domain.BuyerSearch) error {
	return c.doPost(ctx, "InsertSearch", tableSearches, searchToRow(agentID, s))
}

func (c *Client) UpdateSearchStatus(ctx context.Context, agentID, id string, status domain.SearchStatus) error {
	return c.doPatch(ctx, "UpdateSearchStatus", tableSearches, byID(agentID, id), map[string]any{
		"status": string(status),
	})
}

// --- Goals ---

// UpsertGoals writes the goals of one (agent, year) pair.
func (c *Client) UpsertGoals(ctx context.Context, agentID string, g *domain.FinancialGoals) error {
	return c.doUpsert(ctx, "UpsertGoals", tableGoals, "agent_id,year", goalsToRow(agentID, g))
}

// --- Team ---

// ListTeamMembers returns the agents supervised by motherID.
func (c *Client) ListTeamMembers(ctx context.Context, motherID string) ([]domain.TeamMember, error) {
	var rows []teamMemberRow
	path := fmt.Sprintf("%s?mother_id=eq.%s&order=name.asc", tableTeam, url.QueryEscape(motherID))
	if err := c.getRows(ctx, tableTeam, path, &rows); err != nil {
		return nil, err
	}
	members := make([]domain.TeamMember, 0, len(rows))
	for _, r := range rows {
		members = append(members, domain.TeamMember{AgentID: r.AgentID, Name: r.Name})
	}
	return members, nil
}

// Ping checks that PostgREST answers, for the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	var rows []teamMemberRow
	return c.getRows(ctx, tableTeam, tableTeam+"?select=agent_id&limit=1", &rows)
}
