// Package service provides the business logic layer (use cases).
// Every agent owns a Workspace: a versioned record store and the analytics
// engine memoized on it.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/broker-crm-bfa-go/internal/analytics"
	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/observability"
	"github.com/boddenberg/broker-crm-bfa-go/internal/port"
	"github.com/boddenberg/broker-crm-bfa-go/internal/store"
)

var workspaceTracer = otel.Tracer("service/workspaces")

// Workspace is one agent's records and analytics.
type Workspace struct {
	Store  *store.Store
	Engine *analytics.Engine
}

type workspaceEntry struct {
	ready chan struct{}
	ws    *Workspace
	err   error
}

// WorkspaceConfig carries what every new workspace starts from.
type WorkspaceConfig struct {
	Defaults       domain.FinancialGoals
	Year           int
	MaxConcurrency int
	// Now replaces time.Now in the engines, for tests.
	Now func() time.Time
}

// Workspaces lazily loads and keeps the workspace of every agent that has
// made a request.
type Workspaces struct {
	repo    port.RecordRepository
	cfg     WorkspaceConfig
	metrics *observability.Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]*workspaceEntry
}

// NewWorkspaces creates an empty registry.
func NewWorkspaces(repo port.RecordRepository, cfg WorkspaceConfig, metrics *observability.Metrics, logger *zap.Logger) *Workspaces {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	return &Workspaces{
		repo:    repo,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		entries: make(map[string]*workspaceEntry),
	}
}

// Get returns the agent's workspace, loading its records on first access.
// Concurrent first requests share one load. A failed load is forgotten so
// the next request retries it.
func (w *Workspaces) Get(ctx context.Context, agentID string) (*Workspace, error) {
	if agentID == "" {
		return nil, &domain.ErrUnauthorized{Message: "missing agent id"}
	}

	w.mu.Lock()
	e, ok := w.entries[agentID]
	if !ok {
		e = &workspaceEntry{ready: make(chan struct{})}
		w.entries[agentID] = e
	}
	w.mu.Unlock()

	if !ok {
		w.load(ctx, agentID, e)
	}

	select {
	case <-e.ready:
		return e.ws, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *Workspaces) load(ctx context.Context, agentID string, e *workspaceEntry) {
	ctx, span := workspaceTracer.Start(ctx, "Workspaces.load")
	defer span.End()
	span.SetAttributes(attribute.String("agent.id", agentID))
	defer close(e.ready)

	start := time.Now()
	st := store.New(agentID, w.repo, w.cfg.Defaults, w.cfg.Year, w.logger)
	if err := st.Reload(ctx); err != nil {
		w.logger.Error("failed to load workspace",
			zap.String("agent_id", agentID),
			zap.Error(err),
		)
		e.err = fmt.Errorf("loading records of %s: %w", agentID, err)

		w.mu.Lock()
		delete(w.entries, agentID)
		w.mu.Unlock()
		return
	}

	opts := []analytics.Option{analytics.WithObserver(w.metrics)}
	if w.cfg.Now != nil {
		opts = append(opts, analytics.WithClock(w.cfg.Now))
	}
	e.ws = &Workspace{Store: st, Engine: analytics.NewEngine(st, opts...)}

	w.metrics.RecordRequestDuration("workspace.load", time.Since(start))
	w.metrics.SetWorkspacesLoaded(w.Len())
	w.logger.Info("workspace loaded", zap.String("agent_id", agentID))
}

// Len counts the workspaces that finished loading.
func (w *Workspaces) Len() int {
	return len(w.loaded())
}

func (w *Workspaces) loaded() []*Workspace {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]*Workspace, 0, len(w.entries))
	for _, e := range w.entries {
		select {
		case <-e.ready:
			if e.ws != nil {
				out = append(out, e.ws)
			}
		default:
		}
	}
	return out
}

// Reload refreshes one agent's records from the backend.
func (w *Workspaces) Reload(ctx context.Context, agentID string) (*Workspace, error) {
	ctx, span := workspaceTracer.Start(ctx, "Workspaces.Reload")
	defer span.End()

	w.mu.Lock()
	_, known := w.entries[agentID]
	w.mu.Unlock()

	ws, err := w.Get(ctx, agentID)
	if err != nil || !known {
		// A fresh load is already current.
		return ws, err
	}
	if err := ws.Store.Reload(ctx); err != nil {
		return nil, err
	}
	return ws, nil
}

// ReloadAll refreshes every loaded workspace, at most MaxConcurrency at a
// time. Failures are logged and joined; the other workspaces still reload.
func (w *Workspaces) ReloadAll(ctx context.Context) error {
	ctx, span := workspaceTracer.Start(ctx, "Workspaces.ReloadAll")
	defer span.End()

	all := w.loaded()
	span.SetAttributes(attribute.Int("workspaces.count", len(all)))

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.MaxConcurrency)
	for _, ws := range all {
		ws := ws // per-iteration copy (Go <1.22 loop semantics)
		g.Go(func() error {
			if err := ws.Store.Reload(gctx); err != nil {
				w.logger.Warn("workspace reload failed",
					zap.String("agent_id", ws.Store.AgentID()),
					zap.Error(err),
				)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	w.metrics.SetWorkspacesLoaded(len(all))
	return errors.Join(errs...)
}
