// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Backend selects the record repository implementation.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	// BackendMemory keeps records in process, for local development.
	BackendMemory = "memory"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP client
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// Resilience
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"3"`
	InitialBackoff time.Duration `env:"INITIAL_BACKOFF" envDefault:"100ms"`
	MaxConcurrency int           `env:"MAX_CONCURRENCY" envDefault:"8"`

	// Observability
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Record backend
	Backend       string `env:"RECORD_BACKEND" envDefault:"supabase"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"false"`

	// Supabase
	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseAnonKey    string `env:"SUPABASE_ANON_KEY"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`

	// Auth: HS256 secret of the Supabase project that signs access tokens.
	JWTSecret string `env:"SUPABASE_JWT_SECRET"`
	DevAuth   bool   `env:"DEV_AUTH" envDefault:"false"`

	// Exchange rate
	RateAPIURL   string        `env:"RATE_API_URL" envDefault:"https://dolarapi.com"`
	RateSource   string        `env:"RATE_SOURCE" envDefault:"blue"`
	RateCacheTTL time.Duration `env:"RATE_CACHE_TTL" envDefault:"15m"`
	RedisURL     string        `env:"REDIS_URL"`

	// Scheduler (robfig/cron specs)
	ReloadSchedule      string `env:"RELOAD_SCHEDULE" envDefault:"@every 10m"`
	RateRefreshSchedule string `env:"RATE_REFRESH_SCHEDULE" envDefault:"@every 30m"`

	// Goals
	GoalsDefaultsFile string `env:"GOALS_DEFAULTS_FILE"`
	FiscalYear        int    `env:"FISCAL_YEAR"`
}

// Load parses the environment into a Config and checks that the selected
// backend is fully configured.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("backend %q needs SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY", c.Backend)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("backend %q needs DATABASE_URL", c.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown RECORD_BACKEND %q", c.Backend)
	}
	if !c.DevAuth && c.JWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required unless DEV_AUTH=true")
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("MAX_CONCURRENCY must be at least 1")
	}
	return nil
}

// SelectedYear is the fiscal year new workspaces open on.
func (c *Config) SelectedYear(now time.Time) int {
	if c.FiscalYear > 0 {
		return c.FiscalYear
	}
	return now.Year()
}
