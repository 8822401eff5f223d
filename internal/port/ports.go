// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// RecordRepository persists the CRM records of one agent.
// Implemented by the Supabase (PostgREST) and Postgres adapters.
type RecordRepository interface {
	// LoadRecords fetches every collection of the agent.
	LoadRecords(ctx context.Context, agentID string) (*domain.RecordSet, error)

	// Activities
	InsertActivity(ctx context.Context, agentID string, a *domain.Activity) error
	DeleteActivity(ctx context.Context, agentID, id string) error

	// Closings
	InsertClosing(ctx context.Context, agentID string, c *domain.Closing) error
	DeleteClosing(ctx context.Context, agentID, id string) error

	// Properties
	InsertProperty(ctx context.Context, agentID string, p *domain.Property) error
	UpdatePropertyStatus(ctx context.Context, agentID, id string, status domain.PropertyStatus) error

	// Visits
	InsertVisit(ctx context.Context, agentID string, v *domain.Visit) error
	UpdateVisit(ctx context.Context, agentID string, v *domain.Visit) error

	// Clients
	InsertBuyer(ctx context.Context, agentID string, b *domain.Buyer) error
	InsertSeller(ctx context.Context, agentID string, s *domain.Seller) error

	// Buyer searches
	InsertSearch(ctx context.Context, agentID string, s *domain.BuyerSearch) error
	UpdateSearchStatus(ctx context.Context, agentID, id string, status domain.SearchStatus) error

	// Goals
	UpsertGoals(ctx context.Context, agentID string, g *domain.FinancialGoals) error
}

// TeamDirectory lists the agents supervised by a mother account.
type TeamDirectory interface {
	ListTeamMembers(ctx context.Context, motherID string) ([]domain.TeamMember, error)
}

// RateFetcher retrieves the live ARS/USD quote.
type RateFetcher interface {
	FetchRate(ctx context.Context) (*domain.ExchangeRateQuote, error)
}

// HealthChecker reports whether a backend is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
