// Package store keeps one agent's CRM records in memory. Every mutation is
// persisted through a port.RecordRepository first, then applied by replacing
// the affected collection and bumping its version, so readers holding an
// earlier snapshot are never affected.
package store

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/port"
)

// Store is the versioned record store of one agent.
type Store struct {
	agentID string
	repo    port.RecordRepository
	logger  *zap.Logger

	// writeMu orders backend writes with the swap that follows them.
	writeMu sync.Mutex

	mu     sync.RWMutex
	data   domain.Snapshot
	clock  uint64
	dirty  map[int]bool
	err    error
	loaded bool
}

// New creates an empty store. Call Reload to fetch the agent's records.
func New(agentID string, repo port.RecordRepository, defaults domain.FinancialGoals, year int, logger *zap.Logger) *Store {
	return &Store{
		agentID: agentID,
		repo:    repo,
		logger:  logger.With(zap.String("agent_id", agentID)),
		dirty:   make(map[int]bool),
		data: domain.Snapshot{
			Goals:        domain.GoalsByYear{},
			DefaultGoals: defaults,
			SelectedYear: year,
		},
	}
}

// AgentID returns the owner of the records.
func (s *Store) AgentID() string { return s.agentID }

// Snapshot returns the current immutable view of the records.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Err returns the last persistence error, or nil after a successful
// operation.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Loaded reports whether a Reload has ever succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Reload replaces every collection with the backend's current records.
// Unsaved goal edits are discarded.
func (s *Store) Reload(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	set, err := s.repo.LoadRecords(ctx, s.agentID)
	if err != nil {
		s.fail("reload", err)
		return err
	}

	goals := make(domain.GoalsByYear, len(set.Goals))
	for i := range set.Goals {
		g := set.Goals[i]
		goals[g.Year] = &g
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d := &s.data
	d.Closings = nonNil(set.Closings)
	d.Activities = nonNil(set.Activities)
	d.Properties = nonNil(set.Properties)
	d.Visits = nonNil(set.Visits)
	d.Buyers = nonNil(set.Buyers)
	d.Sellers = nonNil(set.Sellers)
	d.Searches = nonNil(set.Searches)
	d.Goals = goals
	d.Versions = domain.Versions{
		Closings:   s.next(),
		Activities: s.next(),
		Properties: s.next(),
		Visits:     s.next(),
		Buyers:     s.next(),
		Sellers:    s.next(),
		Searches:   s.next(),
		Goals:      s.next(),
		Year:       d.Versions.Year,
	}
	s.dirty = make(map[int]bool)
	s.err = nil
	s.loaded = true
	s.logger.Info("records loaded",
		zap.Int("closings", len(d.Closings)),
		zap.Int("activities", len(d.Activities)),
		zap.Int("properties", len(d.Properties)),
	)
	return nil
}

// SelectYear changes the fiscal year the dashboards show.
func (s *Store) SelectYear(year int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.SelectedYear == year {
		return
	}
	s.data.SelectedYear = year
	s.data.Versions.Year = s.next()
}

// --- Activities ---

// AddActivity persists and appends a manual activity.
func (s *Store) AddActivity(ctx context.Context, a domain.Activity) error {
	return s.write("insert activity",
		func() error { return s.repo.InsertActivity(ctx, s.agentID, &a) },
		func(d *domain.Snapshot) {
			d.Activities = appended(d.Activities, a)
			d.Versions.Activities = s.next()
		})
}

// DeleteActivity removes a manual activity.
func (s *Store) DeleteActivity(ctx context.Context, id string) error {
	return s.writeIf("delete activity",
		func(d *domain.Snapshot) error {
			if indexOf(d.Activities, func(a domain.Activity) bool { return a.ID == id }) < 0 {
				return &domain.ErrNotFound{Resource: "activity", ID: id}
			}
			return nil
		},
		func() error { return s.repo.DeleteActivity(ctx, s.agentID, id) },
		func(d *domain.Snapshot) {
			d.Activities = without(d.Activities, func(a domain.Activity) bool { return a.ID == id })
			d.Versions.Activities = s.next()
		})
}

// --- Closings ---

// AddClosing persists and appends a closing.
func (s *Store) AddClosing(ctx context.Context, c domain.Closing) error {
	return s.write("insert closing",
		func() error { return s.repo.InsertClosing(ctx, s.agentID, &c) },
		func(d *domain.Snapshot) {
			d.Closings = appended(d.Closings, c)
			d.Versions.Closings = s.next()
		})
}

// DeleteClosing removes a closing.
func (s *Store) DeleteClosing(ctx context.Context, id string) error {
	return s.writeIf("delete closing",
		func(d *domain.Snapshot) error {
			if indexOf(d.Closings, func(c domain.Closing) bool { return c.ID == id }) < 0 {
				return &domain.ErrNotFound{Resource: "closing", ID: id}
			}
			return nil
		},
		func() error { return s.repo.DeleteClosing(ctx, s.agentID, id) },
		func(d *domain.Snapshot) {
			d.Closings = without(d.Closings, func(c domain.Closing) bool { return c.ID == id })
			d.Versions.Closings = s.next()
		})
}

// --- Properties ---

// AddProperty persists and appends a listing.
func (s *Store) AddProperty(ctx context.Context, p domain.Property) error {
	return s.write("insert property",
		func() error { return s.repo.InsertProperty(ctx, s.agentID, &p) },
		func(d *domain.Snapshot) {
			d.Properties = appended(d.Properties, p)
			d.Versions.Properties = s.next()
		})
}

// SetPropertyStatus changes a listing's status and returns the updated
// record.
func (s *Store) SetPropertyStatus(ctx context.Context, id string, status domain.PropertyStatus) (*domain.Property, error) {
	var updated domain.Property
	err := s.writeIf("update property status",
		func(d *domain.Snapshot) error {
			i := indexOf(d.Properties, func(p domain.Property) bool { return p.ID == id })
			if i < 0 {
				return &domain.ErrNotFound{Resource: "property", ID: id}
			}
			updated = d.Properties[i]
			updated.Status = status
			return nil
		},
		func() error { return s.repo.UpdatePropertyStatus(ctx, s.agentID, id, status) },
		func(d *domain.Snapshot) {
			d.Properties = replaced(d.Properties, func(p domain.Property) bool { return p.ID == id }, updated)
			d.Versions.Properties = s.next()
		})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// --- Visits ---

// AddVisit persists and appends a visit.
func (s *Store) AddVisit(ctx context.Context, v domain.Visit) error {
	return s.write("insert visit",
		func() error { return s.repo.InsertVisit(ctx, s.agentID, &v) },
		func(d *domain.Snapshot) {
			d.Visits = appended(d.Visits, v)
			d.Versions.Visits = s.next()
		})
}

// UpdateVisit applies fn to a copy of the current visit and stores the
// result. fn runs under the write lock, so a precondition it checks still
// holds when the change is applied; an error from fn aborts the update.
func (s *Store) UpdateVisit(ctx context.Context, id string, fn func(*domain.Visit) error) (*domain.Visit, error) {
	var updated domain.Visit
	err := s.writeIf("update visit",
		func(d *domain.Snapshot) error {
			i := indexOf(d.Visits, func(v domain.Visit) bool { return v.ID == id })
			if i < 0 {
				return &domain.ErrNotFound{Resource: "visit", ID: id}
			}
			updated = d.Visits[i]
			return fn(&updated)
		},
		func() error { return s.repo.UpdateVisit(ctx, s.agentID, &updated) },
		func(d *domain.Snapshot) {
			d.Visits = replaced(d.Visits, func(v domain.Visit) bool { return v.ID == id }, updated)
			d.Versions.Visits = s.next()
		})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// --- Clients ---

// AddBuyer persists and appends a buyer client.
func (s *Store) AddBuyer(ctx context.Context, b domain.Buyer) error {
	return s.write("insert buyer",
		func() error { return s.repo.InsertBuyer(ctx, s.agentID, &b) },
		func(d *domain.Snapshot) {
			d.Buyers = appended(d.Buyers, b)
			d.Versions.Buyers = s.next()
		})
}

// AddSeller persists and appends a seller client.
func (s *Store) AddSeller(ctx context.Context, sl domain.Seller) error {
	return s.write("insert seller",
		func() error { return s.repo.InsertSeller(ctx, s.agentID, &sl) },
		func(d *domain.Snapshot) {
			d.Sellers = appended(d.Sellers, sl)
			d.Versions.Sellers = s.next()
		})
}

// --- Buyer searches ---

// AddSearch persists and appends a buyer search.
func (s *Store) AddSearch(ctx context.Context, bs domain.BuyerSearch) error {
	return s.write("insert search",
		func() error { return s.repo.InsertSearch(ctx, s.agentID, &bs) },
		func(d *domain.Snapshot) {
			d.Searches = appended(d.Searches, bs)
			d.Versions.Searches = s.next()
		})
}

// SetSearchStatus changes a buyer search's status and returns the updated
// record.
func (s *Store) SetSearchStatus(ctx context.Context, id string, status domain.SearchStatus) (*domain.BuyerSearch, error) {
	var updated domain.BuyerSearch
	err := s.writeIf("update search status",
		func(d *domain.Snapshot) error {
			i := indexOf(d.Searches, func(bs domain.BuyerSearch) bool { return bs.ID == id })
			if i < 0 {
				return &domain.ErrNotFound{Resource: "search", ID: id}
			}
			updated = d.Searches[i]
			updated.Status = status
			return nil
		},
		func() error { return s.repo.UpdateSearchStatus(ctx, s.agentID, id, status) },
		func(d *domain.Snapshot) {
			d.Searches = replaced(d.Searches, func(bs domain.BuyerSearch) bool { return bs.ID == id }, updated)
			d.Versions.Searches = s.next()
		})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// --- Goals ---

// UpdateGoals replaces the in-memory goals of g.Year. The change is not
// persisted until SaveGoals.
func (s *Store) UpdateGoals(g domain.FinancialGoals) *domain.FinancialGoals {
	s.mu.Lock()
	defer s.mu.Unlock()
	goals := s.data.Goals.Clone()
	goals[g.Year] = &g
	s.data.Goals = goals
	s.data.Versions.Goals = s.next()
	s.dirty[g.Year] = true
	return &g
}

// SaveGoals persists the goals of year. A year without stored goals saves
// the defaults stamped with that year.
func (s *Store) SaveGoals(ctx context.Context, year int) (*domain.FinancialGoals, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	g := *s.data.GoalsFor(year)
	s.mu.RUnlock()

	if err := s.repo.UpsertGoals(ctx, s.agentID, &g); err != nil {
		s.fail("save goals", err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.Goals.Lookup(year); !ok {
		goals := s.data.Goals.Clone()
		goals[year] = &g
		s.data.Goals = goals
		s.data.Versions.Goals = s.next()
	}
	delete(s.dirty, year)
	s.err = nil
	return &g, nil
}

// Unsaved reports whether the goals of year have edits not yet persisted.
func (s *Store) Unsaved(year int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty[year]
}

// --- internals ---

// write persists a change, then applies it under the lock.
func (s *Store) write(op string, persist func() error, apply func(*domain.Snapshot)) error {
	return s.writeIf(op, nil, persist, apply)
}

// writeIf is write with a prepare step that reads the current records under
// writeMu. No other write can run between prepare and apply; a prepare error
// aborts before the backend is called.
func (s *Store) writeIf(op string, prepare func(*domain.Snapshot) error, persist func() error, apply func(*domain.Snapshot)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if prepare != nil {
		s.mu.RLock()
		err := prepare(&s.data)
		s.mu.RUnlock()
		if err != nil {
			return err
		}
	}

	if err := persist(); err != nil {
		s.fail(op, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	apply(&s.data)
	s.err = nil
	return nil
}

func (s *Store) fail(op string, err error) {
	s.logger.Error("record store write failed", zap.String("op", op), zap.Error(err))
	s.mu.Lock()
	s.err = fmt.Errorf("%s: %w", op, err)
	s.mu.Unlock()
}

// next must be called with mu held.
func (s *Store) next() uint64 {
	s.clock++
	return s.clock
}
