package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/observability"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/broker-crm-bfa-go/internal/port"
)

var teamTracer = otel.Tracer("service/team")

// TeamService builds the dashboard of a mother account: the home metrics of
// every agent it supervises.
type TeamService struct {
	directory  port.TeamDirectory
	workspaces *Workspaces
	bulkhead   *resilience.Bulkhead
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewTeamService creates a team service loading at most maxConcurrency
// member workspaces at a time.
func NewTeamService(directory port.TeamDirectory, workspaces *Workspaces, maxConcurrency int, metrics *observability.Metrics, logger *zap.Logger) *TeamService {
	return &TeamService{
		directory:  directory,
		workspaces: workspaces,
		bulkhead:   resilience.NewBulkhead(maxConcurrency),
		metrics:    metrics,
		logger:     logger,
	}
}

// Summary computes every member's home display concurrently. A member that
// fails to load is reported with its error and left out of the totals. An
// agent supervising nobody gets domain.ErrForbidden.
func (s *TeamService) Summary(ctx context.Context, motherID string) (*domain.TeamSummary, error) {
	ctx, span := teamTracer.Start(ctx, "TeamService.Summary")
	defer span.End()
	span.SetAttributes(attribute.String("mother.id", motherID))

	members, err := s.directory.ListTeamMembers(ctx, motherID)
	if err != nil {
		return nil, err
	}
	// Agents without supervised members are not mother accounts.
	if len(members) == 0 {
		return nil, &domain.ErrForbidden{Action: "team summary requires a mother account"}
	}
	span.SetAttributes(attribute.Int("team.size", len(members)))

	lines := make([]domain.TeamMemberSummary, len(members))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range members {
		i, m := i, m // per-iteration copies (Go <1.22 loop semantics)
		lines[i].TeamMember = m
		g.Go(func() error {
			if err := s.bulkhead.Acquire(gctx); err != nil {
				return err
			}
			defer s.bulkhead.Release()

			ws, err := s.workspaces.Get(gctx, m.AgentID)
			if err != nil {
				s.logger.Warn("team member unavailable",
					zap.String("mother_id", motherID),
					zap.String("agent_id", m.AgentID),
					zap.Error(err),
				)
				lines[i].Error = err.Error()
				return nil
			}
			lines[i].Home = ws.Engine.HomeDisplay()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &domain.TeamSummary{MotherID: motherID, Members: lines}
	for _, l := range lines {
		if l.Home == nil {
			continue
		}
		summary.TotalBilling += l.Home.Billing
		summary.TotalSides += l.Home.Sides
		summary.TotalWeekly += l.Home.WeeklyTraction
	}
	return summary, nil
}
