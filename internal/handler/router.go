package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/observability"
	"github.com/boddenberg/broker-crm-bfa-go/internal/port"
	"github.com/boddenberg/broker-crm-bfa-go/internal/service"
)

var tracer = otel.Tracer("handler")

// healthTimeout bounds each backend probe of /healthz.
const healthTimeout = 2 * time.Second

// Services bundles the use cases the API exposes.
type Services struct {
	CRM       *service.CRMService
	Analytics *service.AnalyticsService
	Team      *service.TeamService
	Rates     *service.ExchangeRateService
	// Health names the backends probed by /healthz.
	Health map[string]port.HealthChecker
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, auth AuthConfig, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Health, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(AgentAuthMiddleware(auth, logger))

		// Records
		r.Get("/activities", listActivitiesHandler(svcs.CRM, logger))
		r.Post("/activities", createActivityHandler(svcs.CRM, logger))
		r.Delete("/activities/{id}", deleteActivityHandler(svcs.CRM, logger))

		r.Get("/closings", listClosingsHandler(svcs.CRM, logger))
		r.Post("/closings", createClosingHandler(svcs.CRM, logger))
		r.Delete("/closings/{id}", deleteClosingHandler(svcs.CRM, logger))

		r.Get("/properties", listPropertiesHandler(svcs.CRM, logger))
		r.Post("/properties", createPropertyHandler(svcs.CRM, logger))
		r.Put("/properties/{id}/status", propertyStatusHandler(svcs.CRM, logger))

		r.Get("/visits", listVisitsHandler(svcs.CRM, logger))
		r.Post("/visits", scheduleVisitHandler(svcs.CRM, logger))
		r.Post("/visits/{id}/complete", completeVisitHandler(svcs.CRM, logger))
		r.Post("/visits/{id}/cancel", cancelVisitHandler(svcs.CRM, logger))

		r.Get("/buyers", listBuyersHandler(svcs.CRM, logger))
		r.Post("/buyers", createBuyerHandler(svcs.CRM, logger))
		r.Get("/sellers", listSellersHandler(svcs.CRM, logger))
		r.Post("/sellers", createSellerHandler(svcs.CRM, logger))

		r.Get("/searches", listSearchesHandler(svcs.CRM, logger))
		r.Post("/searches", createSearchHandler(svcs.CRM, logger))
		r.Put("/searches/{id}/status", searchStatusHandler(svcs.CRM, logger))

		// Goals and fiscal year
		r.Get("/goals/{year}", getGoalsHandler(svcs.CRM, logger))
		r.Put("/goals/{year}", updateGoalsHandler(svcs.CRM, logger))
		r.Post("/goals/{year}/save", saveGoalsHandler(svcs.CRM, logger))
		r.Post("/goals/{year}/exchange-rate/sync", syncGoalsRateHandler(svcs.Rates, logger))
		r.Put("/year", selectYearHandler(svcs.CRM, logger))

		// Store state
		r.Get("/status", statusHandler(svcs.CRM, logger))
		r.Post("/reload", reloadHandler(svcs.CRM, logger))

		// Analytics
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/metrics", metricsHandler(svcs.Analytics, logger))
			r.Get("/activities", feedHandler(svcs.Analytics, logger))
			r.Get("/performance", performanceHandler(svcs.Analytics, logger))
			r.Get("/plan", planHandler(svcs.Analytics, logger))
			r.Post("/plan", planHandler(svcs.Analytics, logger))
			r.Get("/pipeline", pipelineHandler(svcs.Analytics, logger))
			r.Get("/home", homeHandler(svcs.Analytics, logger))
		})
		r.Get("/metrics/analytics", analyticsCacheHandler(metrics))

		// Team and exchange rate
		r.Get("/team/summary", teamSummaryHandler(svcs.Team, logger))
		r.Get("/exchange-rate", exchangeRateHandler(svcs.Rates, logger))
		r.Post("/exchange-rate/refresh", refreshRateHandler(svcs.Rates, logger))
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(checks map[string]port.HealthChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)
		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LastChecked: now},
		}

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		overall := "healthy"
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			start := time.Now()
			err := checks[name].Ping(ctx)
			cancel()

			status := "healthy"
			if err != nil {
				logger.Warn("health check failed", zap.String("service", name), zap.Error(err))
				status = "degraded"
				overall = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name:        name,
				Status:      status,
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			})
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func analyticsCacheHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAnalyticsSnapshot())
	}
}
