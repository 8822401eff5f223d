package service

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/observability"
	"github.com/boddenberg/broker-crm-bfa-go/internal/port"
)

var rateTracer = otel.Tracer("service/exchange-rate")

const rateCacheKey = "ars-usd"

// ExchangeRateService serves the live ARS/USD quote and copies it into an
// agent's goals on request.
type ExchangeRateService struct {
	fetcher    port.RateFetcher
	cache      port.Cache[domain.ExchangeRateQuote]
	workspaces *Workspaces
	metrics    *observability.Metrics
	logger     *zap.Logger

	// last is served when the API fails and the cache has expired.
	last atomic.Pointer[domain.ExchangeRateQuote]
}

// NewExchangeRateService creates a new exchange rate service.
func NewExchangeRateService(fetcher port.RateFetcher, cache port.Cache[domain.ExchangeRateQuote], workspaces *Workspaces, metrics *observability.Metrics, logger *zap.Logger) *ExchangeRateService {
	return &ExchangeRateService{
		fetcher:    fetcher,
		cache:      cache,
		workspaces: workspaces,
		metrics:    metrics,
		logger:     logger,
	}
}

// Current returns the cached quote, fetching it when the cache is cold.
func (s *ExchangeRateService) Current(ctx context.Context) (*domain.ExchangeRateQuote, error) {
	ctx, span := rateTracer.Start(ctx, "ExchangeRateService.Current")
	defer span.End()

	if q, ok := s.cache.Get(rateCacheKey); ok {
		s.metrics.IncrCacheHit("exchange_rate")
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &q, nil
	}
	s.metrics.IncrCacheMiss("exchange_rate")
	return s.Refresh(ctx)
}

// Refresh fetches a new quote and caches it. When the API fails, the last
// good quote is returned if there is one.
func (s *ExchangeRateService) Refresh(ctx context.Context) (*domain.ExchangeRateQuote, error) {
	ctx, span := rateTracer.Start(ctx, "ExchangeRateService.Refresh")
	defer span.End()

	q, err := s.fetcher.FetchRate(ctx)
	if err != nil {
		s.metrics.IncrExternalError("exchange-rate")
		if last := s.last.Load(); last != nil {
			s.logger.Warn("exchange rate refresh failed, serving last quote",
				zap.Float64("rate", last.Rate),
				zap.String("fetched_at", last.FetchedAt),
				zap.Error(err),
			)
			return last, nil
		}
		s.logger.Error("exchange rate unavailable", zap.Error(err))
		return nil, err
	}

	s.cache.Set(rateCacheKey, *q)
	s.last.Store(q)
	span.SetAttributes(attribute.Float64("rate.value", q.Rate))
	s.logger.Debug("exchange rate refreshed", zap.String("source", q.Source), zap.Float64("rate", q.Rate))
	return q, nil
}

// SyncGoals writes the current quote into the agent's goals of year and
// saves them. Closings of that year are converted at the new rate.
func (s *ExchangeRateService) SyncGoals(ctx context.Context, agentID string, year int) (*domain.GoalsState, error) {
	ctx, span := rateTracer.Start(ctx, "ExchangeRateService.SyncGoals")
	defer span.End()
	span.SetAttributes(attribute.String("agent.id", agentID), attribute.Int("goals.year", year))

	if err := validateYear(year); err != nil {
		return nil, err
	}
	q, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	ws, err := s.workspaces.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}

	snap := ws.Store.Snapshot()
	g := *snap.GoalsFor(year)
	g.ExchangeRate = q.Rate
	ws.Store.UpdateGoals(g)

	saved, err := ws.Store.SaveGoals(ctx, year)
	if err != nil {
		// The edit stays in memory, marked unsaved.
		return nil, err
	}
	s.logger.Info("goals exchange rate synced",
		zap.String("agent_id", agentID),
		zap.Int("year", year),
		zap.Float64("rate", q.Rate),
	)
	return &domain.GoalsState{Goals: *saved, Stored: true}, nil
}
