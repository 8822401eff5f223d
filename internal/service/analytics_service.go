package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/analytics"
	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/observability"
)

var analyticsTracer = otel.Tracer("service/analytics")

// AnalyticsService serves the memoized analytics of an agent's workspace.
// Results are shared with the engine's caches and must not be modified.
type AnalyticsService struct {
	workspaces *Workspaces
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(workspaces *Workspaces, metrics *observability.Metrics, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{workspaces: workspaces, metrics: metrics, logger: logger}
}

func (s *AnalyticsService) engine(ctx context.Context, agentID string) (*Workspace, error) {
	return s.workspaces.Get(ctx, agentID)
}

func (s *AnalyticsService) observe(op string, start time.Time) {
	s.metrics.RecordRequestDuration("analytics."+op, time.Since(start))
}

// Metrics returns the figures of year, or the all-time figures when year is
// nil.
func (s *AnalyticsService) Metrics(ctx context.Context, agentID string, year *int) (*domain.MetricsResult, error) {
	ctx, span := analyticsTracer.Start(ctx, "AnalyticsService.Metrics")
	defer span.End()
	defer s.observe("metrics", time.Now())

	if year != nil {
		if err := validateYear(*year); err != nil {
			return nil, err
		}
		span.SetAttributes(attribute.Int("analytics.year", *year))
	}
	ws, err := s.engine(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return ws.Engine.MetricsByYear(year), nil
}

// Activities returns the unified feed within [from, to], newest first.
// Empty bounds are open.
func (s *AnalyticsService) Activities(ctx context.Context, agentID, from, to string) ([]domain.FeedEntry, error) {
	ctx, span := analyticsTracer.Start(ctx, "AnalyticsService.Activities")
	defer span.End()
	defer s.observe("activities", time.Now())

	for field, d := range map[string]string{"from": from, "to": to} {
		if d == "" {
			continue
		}
		if _, ok := domain.DateOnly(d); !ok {
			return nil, &domain.ErrValidation{Field: field, Message: "must be YYYY-MM-DD"}
		}
	}

	ws, err := s.engine(ctx, agentID)
	if err != nil {
		return nil, err
	}
	items := analytics.FilterFeed(ws.Engine.UnifiedActivities(), from, to)

	out := make([]domain.FeedEntry, len(items))
	for i, item := range items {
		out[i] = domain.ToFeedEntry(item)
	}
	slices.SortStableFunc(out, func(a, b domain.FeedEntry) int { return strings.Compare(b.Date, a.Date) })
	span.SetAttributes(attribute.Int("feed.count", len(out)))
	return out, nil
}

// Performance returns this week's traction.
func (s *AnalyticsService) Performance(ctx context.Context, agentID string) (*domain.PerformanceMetrics, error) {
	ctx, span := analyticsTracer.Start(ctx, "AnalyticsService.Performance")
	defer span.End()
	defer s.observe("performance", time.Now())

	ws, err := s.engine(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return ws.Engine.PerformanceMetrics(), nil
}

// Plan projects the goals of year. A non-nil override is validated and
// used instead of the stored goals, without being saved.
func (s *AnalyticsService) Plan(ctx context.Context, agentID string, year *int, override *domain.FinancialGoals) (*domain.PlanAnalysis, error) {
	ctx, span := analyticsTracer.Start(ctx, "AnalyticsService.Plan")
	defer span.End()
	defer s.observe("plan", time.Now())

	if year != nil {
		if err := validateYear(*year); err != nil {
			return nil, err
		}
	}
	if override != nil {
		if err := override.Validate(); err != nil {
			return nil, err
		}
	}
	span.SetAttributes(attribute.Bool("plan.override", override != nil))

	ws, err := s.engine(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return ws.Engine.PlanAnalysis(year, override), nil
}

// Pipeline values open inventory and active searches under the named
// profile. Unknown names use the dashboard profile.
func (s *AnalyticsService) Pipeline(ctx context.Context, agentID, profileName string) (*domain.PipelineValue, error) {
	ctx, span := analyticsTracer.Start(ctx, "AnalyticsService.Pipeline")
	defer span.End()
	defer s.observe("pipeline", time.Now())

	ws, err := s.engine(ctx, agentID)
	if err != nil {
		return nil, err
	}
	profile := analytics.PipelineProfileByName(profileName)
	span.SetAttributes(attribute.String("pipeline.profile", profile.Name))

	value := ws.Engine.PipelineValue(profile)
	snap := ws.Store.Snapshot()
	return &domain.PipelineValue{
		Profile:              profile.Name,
		ValueUSD:             value,
		ExchangeRate:         analytics.CurrentRate(&snap),
		InventoryProbability: profile.InventoryProbability,
		SearchProbability:    profile.SearchProbability,
	}, nil
}

// Home returns the home dashboard of the selected year.
func (s *AnalyticsService) Home(ctx context.Context, agentID string) (*domain.HomeDisplayMetrics, error) {
	ctx, span := analyticsTracer.Start(ctx, "AnalyticsService.Home")
	defer span.End()
	defer s.observe("home", time.Now())

	ws, err := s.engine(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return ws.Engine.HomeDisplay(), nil
}

// SelectedYear returns the fiscal year the agent's dashboards show.
func (s *AnalyticsService) SelectedYear(ctx context.Context, agentID string) (int, error) {
	ws, err := s.engine(ctx, agentID)
	if err != nil {
		return 0, err
	}
	return ws.Store.Snapshot().SelectedYear, nil
}
