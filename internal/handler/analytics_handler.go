package handler

import (
	"context"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/service"
)

// historicalYear selects the all-time figures in ?year=.
const historicalYear = "all"

// queryYear resolves ?year=: absent means the selected fiscal year, "all"
// means all time (nil).
func queryYear(ctx context.Context, r *http.Request, svc *service.AnalyticsService, agentID string) (*int, error) {
	v := r.URL.Query().Get("year")
	switch v {
	case historicalYear:
		return nil, nil
	case "":
		y, err := svc.SelectedYear(ctx, agentID)
		if err != nil {
			return nil, err
		}
		return &y, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "year", Message: "must be a number or \"all\""}
	}
	return &y, nil
}

func metricsHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analytics/metrics")
		defer span.End()

		agentID := AgentIDFromContext(ctx)
		year, err := queryYear(ctx, r, svc, agentID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		m, err := svc.Metrics(ctx, agentID, year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func feedHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analytics/activities")
		defer span.End()

		q := r.URL.Query()
		feed, err := svc.Activities(ctx, AgentIDFromContext(ctx), q.Get("from"), q.Get("to"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, feed)
	}
}

func performanceHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analytics/performance")
		defer span.End()

		p, err := svc.Performance(ctx, AgentIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// planHandler serves GET with the stored goals and POST with a goals
// override in the body (a what-if simulation that is not saved).
func planHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" /v1/analytics/plan")
		defer span.End()

		agentID := AgentIDFromContext(ctx)
		year, err := queryYear(ctx, r, svc, agentID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var override *domain.FinancialGoals
		if r.Method == http.MethodPost {
			override = &domain.FinancialGoals{}
			if !decodeBody(w, r, override) {
				return
			}
		}

		plan, err := svc.Plan(ctx, agentID, year, override)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	}
}

func pipelineHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analytics/pipeline")
		defer span.End()

		profile := r.URL.Query().Get("profile")
		span.SetAttributes(attribute.String("pipeline.profile", profile))

		v, err := svc.Pipeline(ctx, AgentIDFromContext(ctx), profile)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func homeHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analytics/home")
		defer span.End()

		h, err := svc.Home(ctx, AgentIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}
}

// ============================================================
// Team
// ============================================================

func teamSummaryHandler(svc *service.TeamService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/team/summary")
		defer span.End()

		summary, err := svc.Summary(ctx, AgentIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
