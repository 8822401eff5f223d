package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/service"
)

// ============================================================
// Goals and fiscal year
// ============================================================

func getGoalsHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/goals/{year}")
		defer span.End()

		year, err := pathYear(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		st, err := svc.GetGoals(ctx, AgentIDFromContext(ctx), year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func updateGoalsHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/goals/{year}")
		defer span.End()

		year, err := pathYear(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var g domain.FinancialGoals
		if !decodeBody(w, r, &g) {
			return
		}
		st, err := svc.UpdateGoals(ctx, AgentIDFromContext(ctx), year, g)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func saveGoalsHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/goals/{year}/save")
		defer span.End()

		year, err := pathYear(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		st, err := svc.SaveGoals(ctx, AgentIDFromContext(ctx), year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func selectYearHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/year")
		defer span.End()

		var req struct {
			Year int `json:"year"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		span.SetAttributes(attribute.Int("fiscal.year", req.Year))

		st, err := svc.SelectYear(ctx, AgentIDFromContext(ctx), req.Year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// ============================================================
// Store state
// ============================================================

func statusHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/status")
		defer span.End()

		st, err := svc.Status(ctx, AgentIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func reloadHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reload")
		defer span.End()

		st, err := svc.Reload(ctx, AgentIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// ============================================================
// Exchange rate
// ============================================================

func exchangeRateHandler(svc *service.ExchangeRateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/exchange-rate")
		defer span.End()

		q, err := svc.Current(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func refreshRateHandler(svc *service.ExchangeRateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/exchange-rate/refresh")
		defer span.End()

		q, err := svc.Refresh(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func syncGoalsRateHandler(svc *service.ExchangeRateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/goals/{year}/exchange-rate/sync")
		defer span.End()

		year, err := pathYear(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		st, err := svc.SyncGoals(ctx, AgentIDFromContext(ctx), year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
