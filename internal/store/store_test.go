package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/store"
)

// --- Mocks ---

type mockRepo struct {
	mu      sync.Mutex
	set     *domain.RecordSet
	loadErr error
	failAll error
	calls   []string
	goals   []domain.FinancialGoals
	delay   time.Duration
}

func (m *mockRepo) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.failAll
}

func (m *mockRepo) LoadRecords(_ context.Context, _ string) (*domain.RecordSet, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.set == nil {
		return &domain.RecordSet{}, nil
	}
	return m.set, nil
}

func (m *mockRepo) InsertActivity(_ context.Context, _ string, _ *domain.Activity) error {
	return m.record("InsertActivity")
}

func (m *mockRepo) DeleteActivity(_ context.Context, _, _ string) error {
	return m.record("DeleteActivity")
}

func (m *mockRepo) InsertClosing(_ context.Context, _ string, _ *domain.Closing) error {
	return m.record("InsertClosing")
}

func (m *mockRepo) DeleteClosing(_ context.Context, _, _ string) error {
	return m.record("DeleteClosing")
}

func (m *mockRepo) InsertProperty(_ context.Context, _ string, _ *domain.Property) error {
	return m.record("InsertProperty")
}

func (m *mockRepo) UpdatePropertyStatus(_ context.Context, _, _ string, _ domain.PropertyStatus) error {
	return m.record("UpdatePropertyStatus")
}

func (m *mockRepo) InsertVisit(_ context.Context, _ string, _ *domain.Visit) error {
	return m.record("InsertVisit")
}

func (m *mockRepo) UpdateVisit(_ context.Context, _ string, _ *domain.Visit) error {
	time.Sleep(m.delay)
	return m.record("UpdateVisit")
}

func (m *mockRepo) InsertBuyer(_ context.Context, _ string, _ *domain.Buyer) error {
	return m.record("InsertBuyer")
}

func (m *mockRepo) InsertSeller(_ context.Context, _ string, _ *domain.Seller) error {
	return m.record("InsertSeller")
}

func (m *mockRepo) InsertSearch(_ context.Context, _ string, _ *domain.BuyerSearch) error {
	return m.record("InsertSearch")
}

func (m *mockRepo) UpdateSearchStatus(_ context.Context, _, _ string, _ domain.SearchStatus) error {
	return m.record("UpdateSearchStatus")
}

func (m *mockRepo) UpsertGoals(_ context.Context, _ string, g *domain.FinancialGoals) error {
	if err := m.record("UpsertGoals"); err != nil {
		return err
	}
	m.mu.Lock()
	m.goals = append(m.goals, *g)
	m.mu.Unlock()
	return nil
}

func newStore(repo *mockRepo) *store.Store {
	return store.New("agent-1", repo, domain.DefaultGoals, 2024, zap.NewNop())
}

// --- Tests ---

func TestReload_ReplacesCollections(t *testing.T) {
	repo := &mockRepo{set: &domain.RecordSet{
		Closings:   []domain.Closing{{ID: "c1", Date: "2024-01-10"}},
		Activities: []domain.Activity{{ID: "a1", Date: "2024-01-11", Type: domain.ActivityGreen}},
		Goals:      []domain.FinancialGoals{{Year: 2023, AnnualBilling: 10000, ExchangeRate: 900}},
	}}
	s := newStore(repo)
	before := s.Snapshot()

	require.NoError(t, s.Reload(context.Background()))
	snap := s.Snapshot()

	assert.True(t, s.Loaded())
	assert.Len(t, snap.Closings, 1)
	assert.Len(t, snap.Activities, 1)
	assert.NotNil(t, snap.Properties)
	assert.NotEqual(t, before.Versions.Closings, snap.Versions.Closings)
	g, ok := snap.Goals.Lookup(2023)
	require.True(t, ok)
	assert.InDelta(t, 900, g.ExchangeRate, 1e-9)
	assert.Equal(t, 2024, snap.SelectedYear)
}

func TestReload_FailureSetsErr(t *testing.T) {
	repo := &mockRepo{loadErr: errors.New("connection refused")}
	s := newStore(repo)

	err := s.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, s.Err(), "connection refused")
	assert.False(t, s.Loaded())

	repo.loadErr = nil
	require.NoError(t, s.Reload(context.Background()))
	assert.NoError(t, s.Err())
}

func TestAddActivity_CopyOnWrite(t *testing.T) {
	repo := &mockRepo{}
	s := newStore(repo)
	require.NoError(t, s.Reload(context.Background()))

	before := s.Snapshot()
	require.NoError(t, s.AddActivity(context.Background(), domain.Activity{ID: "a1", Date: "2024-02-01", Type: domain.ActivityPreListing}))
	after := s.Snapshot()

	assert.Empty(t, before.Activities)
	assert.Len(t, after.Activities, 1)
	assert.Greater(t, after.Versions.Activities, before.Versions.Activities)
	assert.Equal(t, before.Versions.Closings, after.Versions.Closings)
	assert.Equal(t, []string{"InsertActivity"}, repo.calls)
}

func TestWriteFailure_LeavesRecordsUntouched(t *testing.T) {
	repo := &mockRepo{}
	s := newStore(repo)
	require.NoError(t, s.Reload(context.Background()))
	repo.failAll = errors.New("503 from backend")
	before := s.Snapshot()

	err := s.AddClosing(context.Background(), domain.Closing{ID: "c1", Date: "2024-01-01", Sides: 1})

	require.Error(t, err)
	assert.Equal(t, before.Versions, s.Snapshot().Versions)
	assert.Empty(t, s.Snapshot().Closings)
	assert.ErrorContains(t, s.Err(), "insert closing")
}

func TestDelete_NotFound(t *testing.T) {
	s := newStore(&mockRepo{})

	err := s.DeleteClosing(context.Background(), "missing")

	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "closing", nf.Resource)
}

func TestDeleteActivity(t *testing.T) {
	repo := &mockRepo{set: &domain.RecordSet{Activities: []domain.Activity{{ID: "a1"}, {ID: "a2"}}}}
	s := newStore(repo)
	require.NoError(t, s.Reload(context.Background()))
	before := s.Snapshot()

	require.NoError(t, s.DeleteActivity(context.Background(), "a1"))

	assert.Len(t, before.Activities, 2)
	require.Len(t, s.Snapshot().Activities, 1)
	assert.Equal(t, "a2", s.Snapshot().Activities[0].ID)
}

func TestSetPropertyStatus(t *testing.T) {
	repo := &mockRepo{set: &domain.RecordSet{Properties: []domain.Property{{ID: "p1", Status: domain.PropertyAvailable}}}}
	s := newStore(repo)
	require.NoError(t, s.Reload(context.Background()))
	before := s.Snapshot()

	p, err := s.SetPropertyStatus(context.Background(), "p1", domain.PropertySold)

	require.NoError(t, err)
	assert.Equal(t, domain.PropertySold, p.Status)
	assert.Equal(t, domain.PropertyAvailable, before.Properties[0].Status)
	assert.Equal(t, domain.PropertySold, s.Snapshot().Properties[0].Status)
}

func TestUpdateVisit(t *testing.T) {
	repo := &mockRepo{set: &domain.RecordSet{Visits: []domain.Visit{{ID: "v1", Status: domain.VisitPending}}}}
	s := newStore(repo)
	require.NoError(t, s.Reload(context.Background()))

	v, err := s.UpdateVisit(context.Background(), "v1", func(v *domain.Visit) error {
		v.Status = domain.VisitCompleted
		v.Feedback = "good light"
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, domain.VisitCompleted, v.Status)
	assert.Equal(t, "good light", s.Snapshot().Visits[0].Feedback)
}

func TestUpdateVisit_RejectedByCallback(t *testing.T) {
	repo := &mockRepo{set: &domain.RecordSet{Visits: []domain.Visit{{ID: "v1", Status: domain.VisitCancelled}}}}
	s := newStore(repo)
	require.NoError(t, s.Reload(context.Background()))
	rejected := errors.New("not pending")

	_, err := s.UpdateVisit(context.Background(), "v1", func(v *domain.Visit) error {
		if v.Status != domain.VisitPending {
			return rejected
		}
		v.Status = domain.VisitCompleted
		return nil
	})

	assert.ErrorIs(t, err, rejected)
	assert.Empty(t, repo.calls, "a rejected update must not reach the backend")
	assert.Equal(t, domain.VisitCancelled, s.Snapshot().Visits[0].Status)
}

func TestUpdateVisit_ConcurrentTransitionsSeeEachOther(t *testing.T) {
	repo := &mockRepo{
		set:   &domain.RecordSet{Visits: []domain.Visit{{ID: "v1", Status: domain.VisitPending}}},
		delay: 20 * time.Millisecond,
	}
	s := newStore(repo)
	require.NoError(t, s.Reload(context.Background()))
	conflict := errors.New("already transitioned")

	targets := []domain.VisitStatus{domain.VisitCompleted, domain.VisitCancelled}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		i, target := i, target // per-iteration copies (Go <1.22 loop semantics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.UpdateVisit(context.Background(), "v1", func(v *domain.Visit) error {
				if v.Status != domain.VisitPending {
					return conflict
				}
				v.Status = target
				return nil
			})
		}()
	}
	wg.Wait()

	var winner domain.VisitStatus
	failures := 0
	for i, err := range errs {
		if err == nil {
			winner = targets[i]
			continue
		}
		assert.ErrorIs(t, err, conflict)
		failures++
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, winner, s.Snapshot().Visits[0].Status)
	assert.Len(t, repo.calls, 1)
}

func TestSetSearchStatus_NotFound(t *testing.T) {
	s := newStore(&mockRepo{})

	_, err := s.SetSearchStatus(context.Background(), "nope", domain.SearchPaused)

	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestGoals_UpdateThenSave(t *testing.T) {
	repo := &mockRepo{}
	s := newStore(repo)
	require.NoError(t, s.Reload(context.Background()))
	v0 := s.Snapshot().Versions.Goals

	g := domain.DefaultGoals
	g.Year = 2024
	g.AnnualBilling = 75000
	s.UpdateGoals(g)

	assert.True(t, s.Unsaved(2024))
	assert.Greater(t, s.Snapshot().Versions.Goals, v0)
	assert.Empty(t, repo.goals)

	saved, err := s.SaveGoals(context.Background(), 2024)
	require.NoError(t, err)
	assert.InDelta(t, 75000, saved.AnnualBilling, 1e-9)
	assert.False(t, s.Unsaved(2024))
	require.Len(t, repo.goals, 1)
	assert.Equal(t, 2024, repo.goals[0].Year)
}

func TestSaveGoals_DefaultsForMissingYear(t *testing.T) {
	repo := &mockRepo{}
	s := newStore(repo)

	saved, err := s.SaveGoals(context.Background(), 2025)

	require.NoError(t, err)
	assert.Equal(t, 2025, saved.Year)
	assert.InDelta(t, domain.DefaultGoals.AnnualBilling, saved.AnnualBilling, 1e-9)
	_, ok := s.Snapshot().Goals.Lookup(2025)
	assert.True(t, ok)
}

func TestSelectYear(t *testing.T) {
	s := newStore(&mockRepo{})
	v0 := s.Snapshot().Versions.Year

	s.SelectYear(2024)
	assert.Equal(t, v0, s.Snapshot().Versions.Year, "same year is a no-op")

	s.SelectYear(2023)
	assert.Equal(t, 2023, s.Snapshot().SelectedYear)
	assert.NotEqual(t, v0, s.Snapshot().Versions.Year)
}
