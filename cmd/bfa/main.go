package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/config"
	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/handler"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/cache"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/client"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/memory"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/observability"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/postgres"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/broker-crm-bfa-go/internal/port"
	"github.com/boddenberg/broker-crm-bfa-go/internal/scheduler"
	"github.com/boddenberg/broker-crm-bfa-go/internal/service"
)

// backend is what every record store implementation provides.
type backend interface {
	port.RecordRepository
	port.TeamDirectory
	port.HealthChecker
}

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("record_backend", cfg.Backend),
		zap.Bool("dev_auth", cfg.DevAuth),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("rate_cache_ttl", cfg.RateCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
	)
	if cfg.DevAuth {
		logger.Warn("DEV_AUTH enabled: the X-Agent-Id header is trusted without a token")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "broker-crm-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Goals defaults ---
	defaults, err := config.LoadGoalsDefaults(cfg.GoalsDefaultsFile)
	if err != nil {
		logger.Fatal("failed to load goals defaults", zap.Error(err))
	}

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Record backend ---
	repo, closeRepo, err := openBackend(ctx, cfg, httpClient, resilienceCfg, logger)
	if err != nil {
		logger.Fatal("failed to open record backend", zap.Error(err))
	}
	defer closeRepo()

	// --- Exchange rate ---
	rateCache, closeCache := newRateCache(cfg, logger)
	defer closeCache()
	rateClient := client.NewRateClient(httpClient, cfg.RateAPIURL, cfg.RateSource,
		resilience.NewCircuitBreaker("exchange-rate", logger), resilienceCfg)

	// --- Services ---
	workspaces := service.NewWorkspaces(repo, service.WorkspaceConfig{
		Defaults:       defaults,
		Year:           cfg.SelectedYear(time.Now()),
		MaxConcurrency: cfg.MaxConcurrency,
	}, metrics, logger)

	svcs := handler.Services{
		CRM:       service.NewCRMService(workspaces, metrics, logger),
		Analytics: service.NewAnalyticsService(workspaces, metrics, logger),
		Team:      service.NewTeamService(repo, workspaces, cfg.MaxConcurrency, metrics, logger),
		Rates:     service.NewExchangeRateService(rateClient, rateCache, workspaces, metrics, logger),
		Health:    map[string]port.HealthChecker{cfg.Backend: repo},
	}

	// --- Background jobs ---
	sched := scheduler.New(metrics, logger)
	jobs := []scheduler.Job{
		{
			Name:     "reload_workspaces",
			Schedule: cfg.ReloadSchedule,
			Timeout:  5 * time.Minute,
			Run:      workspaces.ReloadAll,
		},
		{
			Name:     "refresh_exchange_rate",
			Schedule: cfg.RateRefreshSchedule,
			Timeout:  cfg.HTTPTimeout * time.Duration(cfg.MaxRetries+1),
			Run: func(ctx context.Context) error {
				_, err := svcs.Rates.Refresh(ctx)
				return err
			},
		},
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			logger.Fatal("failed to schedule job", zap.String("job", job.Name), zap.Error(err))
		}
	}
	sched.Start()

	// --- Router ---
	router := handler.NewRouter(svcs, handler.AuthConfig{
		JWTSecret: []byte(cfg.JWTSecret),
		DevAuth:   cfg.DevAuth,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sched.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openBackend builds the record repository selected by RECORD_BACKEND. The
// returned func releases its resources.
func openBackend(ctx context.Context, cfg *config.Config, httpClient *http.Client, rc resilience.Config, logger *zap.Logger) (backend, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.DefaultPoolConfig, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.RunMigrations {
			if err := postgres.Migrate(ctx, pool, logger); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		logger.Info("using PostgreSQL as record backend")
		return postgres.NewRepository(pool), pool.Close, nil

	case config.BackendMemory:
		logger.Warn("using in-memory record backend: records are lost on restart")
		return memory.New(), func() {}, nil

	default:
		logger.Info("using Supabase as record backend", zap.String("supabase_url", cfg.SupabaseURL))
		return supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase", logger),
			rc,
			logger,
		), func() {}, nil
	}
}

// newRateCache uses Redis when REDIS_URL is set so replicas share the
// quote, and the in-process cache otherwise.
func newRateCache(cfg *config.Config, logger *zap.Logger) (port.Cache[domain.ExchangeRateQuote], func()) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err == nil {
			rdb := redis.NewClient(opts)
			logger.Info("exchange rate cache: redis", zap.String("addr", opts.Addr))
			return cache.NewRedis[domain.ExchangeRateQuote](rdb, "crm:rate:", cfg.RateCacheTTL, logger), func() { _ = rdb.Close() }
		}
		logger.Warn("invalid REDIS_URL, using in-memory cache", zap.Error(err))
	}
	c := cache.New[domain.ExchangeRateQuote](cfg.RateCacheTTL)
	return c, c.Close
}
