package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/service"
)

// ============================================================
// Activities
// ============================================================

func listActivitiesHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/activities")
		defer span.End()

		items, err := svc.ListActivities(ctx, AgentIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, items)
	}
}

func createActivityHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/activities")
		defer span.End()

		var a domain.Activity
		if !decodeBody(w, r, &a) {
			return
		}
		created, err := svc.CreateActivity(ctx, AgentIDFromContext(ctx), a)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func deleteActivityHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/activities/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		if err := svc.DeleteActivity(ctx, AgentIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "activity deleted", ID: id})
	}
}

// ============================================================
// Closings
// ============================================================

func listClosingsHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/closings")
		defer span.End()

		items, err := svc.ListClosings(ctx, AgentIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, items)
	}
}

func createClosingHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/closings")
		defer span.End()

		var c domain.Closing
		if !decodeBody(w, r, &c) {
			return
		}
		created, err := svc.CreateClosing(ctx, AgentIDFromContext(ctx), c)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func deleteClosingHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/closings/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		if err := svc.DeleteClosing(ctx, AgentIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "closing deleted", ID: id})
	}
}

// ============================================================
// Properties
// ============================================================

func listPropertiesHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/properties")
		defer span.End()

		items, err := svc.ListProperties(ctx, AgentIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, items)
	}
}

func createPropertyHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/properties")
		defer span.End()

		var p domain.Property
		if !decodeBody(w, r, &p) {
			return
		}
		created, err := svc.CreateProperty(ctx, AgentIDFromContext(ctx), p)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func propertyStatusHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/properties/{id}/status")
		defer span.End()

		var req struct {
			Status domain.PropertyStatus `json:"status"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		span.SetAttributes(attribute.String("property.status", string(req.Status)))

		updated, err := svc.SetPropertyStatus(ctx, AgentIDFromContext(ctx), chi.URLParam(r, "id"), req.Status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// ============================================================
// Visits
// ============================================================

func listVisitsHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/visits")
		defer span.End()

		items, err := svc.ListVisits(ctx, AgentIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, items)
	}
}

func scheduleVisitHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/visits")
		defer span.End()

		var v domain.Visit
		if !decodeBody(w, r, &v) {
			return
		}
		created, err := svc.ScheduleVisit(ctx, AgentIDFromContext(ctx), v)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func completeVisitHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/visits/{id}/complete")
		defer span.End()

		var req struct {
			Feedback  string `json:"feedback"`
			NextSteps string `json:"nextSteps"`
		}
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}
		v, err := svc.CompleteVisit(ctx, AgentIDFromContext(ctx), chi.URLParam(r, "id"), req.Feedback, req.NextSteps)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func cancelVisitHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/visits/{id}/cancel")
		defer span.End()

		v, err := svc.CancelVisit(ctx, AgentIDFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// ============================================================
// Clients
// ============================================================

func listBuyersHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/buyers")
		defer span.End()

		items, err := svc.ListBuyers(ctx, AgentIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, items)
	}
}

func createBuyerHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/buyers")
		defer span.End()

		var b domain.Buyer
		if !decodeBody(w, r, &b) {
			return
		}
		created, err := svc.CreateBuyer(ctx, AgentIDFromContext(ctx), b)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func listSellersHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/sellers")
		defer span.End()

		items, err := svc.ListSellers(ctx, AgentIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, items)
	}
}

func createSellerHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sellers")
		defer span.End()

		var s domain.Seller
		if !decodeBody(w, r, &s) {
			return
		}
		created, err := svc.CreateSeller(ctx, AgentIDFromContext(ctx), s)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// ============================================================
// Buyer searches
// ============================================================

func listSearchesHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/searches")
		defer span.End()

		items, err := svc.ListSearches(ctx, AgentIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeList(w, items)
	}
}

func createSearchHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/searches")
		defer span.End()

		var bs domain.BuyerSearch
		if !decodeBody(w, r, &bs) {
			return
		}
		created, err := svc.CreateSearch(ctx, AgentIDFromContext(ctx), bs)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func searchStatusHandler(svc *service.CRMService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/searches/{id}/status")
		defer span.End()

		var req struct {
			Status domain.SearchStatus `json:"status"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		updated, err := svc.SetSearchStatus(ctx, AgentIDFromContext(ctx), chi.URLParam(r, "id"), req.Status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}
