// Package memory implements the record repository in process. It backs
// RECORD_BACKEND=memory for local development and the HTTP tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

// Repository keeps every agent's records in maps guarded by one lock.
type Repository struct {
	mu   sync.RWMutex
	sets map[string]*domain.RecordSet
	team map[string][]domain.TeamMember
}

// New creates an empty repository.
func New() *Repository {
	return &Repository{
		sets: make(map[string]*domain.RecordSet),
		team: make(map[string][]domain.TeamMember),
	}
}

// Seed replaces the records of agentID.
func (r *Repository) Seed(agentID string, set domain.RecordSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[agentID] = clone(&set)
}

// SetTeam replaces the agents supervised by motherID.
func (r *Repository) SetTeam(motherID string, members []domain.TeamMember) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.team[motherID] = slices.Clone(members)
}

func clone(s *domain.RecordSet) *domain.RecordSet {
	return &domain.RecordSet{
		Closings:   slices.Clone(s.Closings),
		Activities: slices.Clone(s.Activities),
		Properties: slices.Clone(s.Properties),
		Visits:     slices.Clone(s.Visits),
		Buyers:     slices.Clone(s.Buyers),
		Sellers:    slices.Clone(s.Sellers),
		Searches:   slices.Clone(s.Searches),
		Goals:      slices.Clone(s.Goals),
	}
}

// set returns the agent's records, creating them. Callers hold the lock.
func (r *Repository) set(agentID string) *domain.RecordSet {
	s, ok := r.sets[agentID]
	if !ok {
		s = &domain.RecordSet{}
		r.sets[agentID] = s
	}
	return s
}

func (r *Repository) LoadRecords(_ context.Context, agentID string) (*domain.RecordSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sets[agentID]
	if !ok {
		return &domain.RecordSet{}, nil
	}
	return clone(s), nil
}

func (r *Repository) InsertActivity(_ context.Context, agentID string, a *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(agentID)
	s.Activities = append(s.Activities, *a)
	return nil
}

func (r *Repository) DeleteActivity(_ context.Context, agentID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(agentID)
	i := slices.IndexFunc(s.Activities, func(a domain.Activity) bool { return a.ID == id })
	if i < 0 {
		return &domain.ErrNotFound{Resource: "activity", ID: id}
	}
	s.Activities = slices.Delete(s.Activities, i, i+1)
	return nil
}

func (r *Repository) InsertClosing(_ context.Context, agentID string, c *domain.Closing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(agentID)
	s.Closings = append(s.Closings, *c)
	return nil
}

func (r *Repository) DeleteClosing(_ context.Context, agentID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(agentID)
	i := slices.IndexFunc(s.Closings, func(c domain.Closing) bool { return c.ID == id })
	if i < 0 {
		return &domain.ErrNotFound{Resource: "closing", ID: id}
	}
	s.Closings = slices.Delete(s.Closings, i, i+1)
	return nil
}

func (r *Repository) InsertProperty(_ context.Context, agentID string, p *domain.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(agentID)
	s.Properties = append(s.Properties, *p)
	return nil
}

func (r *Repository) UpdatePropertyStatus(_ context.Context, agentID, id string, status domain.PropertyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(agentID)
	i := slices.IndexFunc(s.Properties, func(p domain.Property) bool { return p.ID == id })
	if i < 0 {
		return &domain.ErrNotFound{Resource: "property", ID: id}
	}
	s.Properties[i].Status = status
	return nil
}

func (r *Repository) InsertVisit(_ context.Context, agentID string, v *domain.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(agentID)
	s.Visits = append(s.Visits, *v)
	return nil
}

func (r *Repository) UpdateVisit(_ context.Context, agentID string, v *domain.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(agentID)
	i := slices.IndexFunc(s.Visits, func(x domain.Visit) bool { return x.ID == v.ID })
	if i < 0 {
		return &domain.ErrNotFound{Resource: "visit", ID: v.ID}
	}
	s.Visits[i] = *v
	return nil
}

func (r *Repository) InsertBuyer(_ context.Context, agentID string, b *domain.Buyer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(agentID)
	s.Buyers = append(s.Buyers, *b)
	return nil
}

func (r *Repository) InsertSeller(_ context.Context, agentID string, sl *domain.Seller) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(agentID)
	s.Sellers = append(s.Sellers, *sl)
	return nil
}

func (r *Repository) InsertSearch(_ context.Context, agentID string, bs *domain.BuyerSearch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(agentID)
	s.Searches = append(s.Searches, *bs)
	return nil
}

func (r *Repository) UpdateSearchStatus(_ context.Context, agentID, id string, status domain.SearchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(agentID)
	i := slices.IndexFunc(s.Searches, func(bs domain.BuyerSearch) bool { return bs.ID == id })
	if i < 0 {
		return &domain.ErrNotFound{Resource: "search", ID: id}
	}
	s.Searches[i].Status = status
	return nil
}

// UpsertGoals replaces the goals of g.Year, keyed like the database's
// (agent_id, year) constraint.
func (r *Repository) UpsertGoals(_ context.Context, agentID string, g *domain.FinancialGoals) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(agentID)
	i := slices.IndexFunc(s.Goals, func(x domain.FinancialGoals) bool { return x.Year == g.Year })
	if i < 0 {
		s.Goals = append(s.Goals, *g)
		return nil
	}
	s.Goals[i] = *g
	return nil
}

func (r *Repository) ListTeamMembers(_ context.Context, motherID string) ([]domain.TeamMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.team[motherID]), nil
}

// Ping always succeeds.
func (r *Repository) Ping(context.Context) error { return nil }
