package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/observability"
	"github.com/boddenberg/broker-crm-bfa-go/internal/service"
)

// --- Mocks ---

// mockRepo serves a fixed record set per agent and accepts every write.
type mockRepo struct {
	mu       sync.Mutex
	sets     map[string]*domain.RecordSet
	loadErr  map[string]error
	writeErr error
	loads    atomic.Int32
	goals    []domain.FinancialGoals
	delay    time.Duration

	// visitDelay stalls UpdateVisit so concurrent transitions overlap.
	visitDelay time.Duration
}

func newMockRepo() *mockRepo {
	return &mockRepo{sets: map[string]*domain.RecordSet{}, loadErr: map[string]error{}}
}

func (m *mockRepo) LoadRecords(_ context.Context, agentID string) (*domain.RecordSet, error) {
	m.loads.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadErr[agentID]; err != nil {
		return nil, err
	}
	if set, ok := m.sets[agentID]; ok {
		return set, nil
	}
	return &domain.RecordSet{}, nil
}

func (m *mockRepo) InsertActivity(context.Context, string, *domain.Activity) error { return m.writeErr }
func (m *mockRepo) DeleteActivity(context.Context, string, string) error           { return m.writeErr }
func (m *mockRepo) InsertClosing(context.Context, string, *domain.Closing) error   { return m.writeErr }
func (m *mockRepo) DeleteClosing(context.Context, string, string) error            { return m.writeErr }
func (m *mockRepo) InsertProperty(context.Context, string, *domain.Property) error { return m.writeErr }
func (m *mockRepo) InsertVisit(context.Context, string, *domain.Visit) error       { return m.writeErr }
func (m *mockRepo) InsertBuyer(context.Context, string, *domain.Buyer) error       { return m.writeErr }
func (m *mockRepo) InsertSeller(context.Context, string, *domain.Seller) error     { return m.writeErr }
func (m *mockRepo) InsertSearch(context.Context, string, *domain.BuyerSearch) error {
	return m.writeErr
}

func (m *mockRepo) UpdateVisit(context.Context, string, *domain.Visit) error {
	time.Sleep(m.visitDelay)
	return m.writeErr
}

func (m *mockRepo) UpdatePropertyStatus(context.Context, string, string, domain.PropertyStatus) error {
	return m.writeErr
}

func (m *mockRepo) UpdateSearchStatus(context.Context, string, string, domain.SearchStatus) error {
	return m.writeErr
}

func (m *mockRepo) UpsertGoals(_ context.Context, _ string, g *domain.FinancialGoals) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	m.goals = append(m.goals, *g)
	m.mu.Unlock()
	return nil
}

type mockDirectory struct {
	members []domain.TeamMember
	err     error
}

func (m *mockDirectory) ListTeamMembers(context.Context, string) ([]domain.TeamMember, error) {
	return m.members, m.err
}

type mockFetcher struct {
	quote *domain.ExchangeRateQuote
	err   error
	calls atomic.Int32
}

func (m *mockFetcher) FetchRate(context.Context) (*domain.ExchangeRateQuote, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	q := *m.quote
	return &q, nil
}

// wednesday is 2024-06-12 15:00 UTC.
var wednesday = time.Date(2024, time.June, 12, 15, 0, 0, 0, time.UTC)

func newWorkspaces(repo *mockRepo) (*service.Workspaces, *observability.Metrics) {
	metrics := observability.NewMetrics()
	ws := service.NewWorkspaces(repo, service.WorkspaceConfig{
		Defaults:       domain.DefaultGoals,
		Year:           2024,
		MaxConcurrency: 4,
		Now:            func() time.Time { return wednesday },
	}, metrics, zap.NewNop())
	return ws, metrics
}
