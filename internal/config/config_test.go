package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/broker-crm-bfa-go/internal/config"
	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, config.BackendSupabase, cfg.Backend)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, "blue", cfg.RateSource)
	assert.Equal(t, "@every 10m", cfg.ReloadSchedule)
}

func TestLoad_PostgresNeedsURL(t *testing.T) {
	t.Setenv("RECORD_BACKEND", "postgres")
	t.Setenv("DEV_AUTH", "true")
	t.Setenv("DATABASE_URL", "")

	_, err := config.Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/crm")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.DevAuth)
}

func TestLoad_MemoryBackendAndUnknownBackend(t *testing.T) {
	t.Setenv("RECORD_BACKEND", "memory")
	t.Setenv("DEV_AUTH", "true")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.Backend)

	t.Setenv("RECORD_BACKEND", "sqlite")
	_, err = config.Load()
	assert.ErrorContains(t, err, "unknown RECORD_BACKEND")
}

func TestLoad_RequiresJWTSecretOutsideDevAuth(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service")
	t.Setenv("SUPABASE_JWT_SECRET", "")
	t.Setenv("DEV_AUTH", "false")

	_, err := config.Load()
	assert.ErrorContains(t, err, "SUPABASE_JWT_SECRET")
}

func TestSelectedYear(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2025, (&config.Config{}).SelectedYear(now))
	assert.Equal(t, 2023, (&config.Config{FiscalYear: 2023}).SelectedYear(now))
}

func TestLoadGoalsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goals.yaml")
	require.NoError(t, os.WriteFile(path, []byte("annualBilling: 60000\ncommercialWeeks: 44\nexchangeRate: 1250\n"), 0o600))

	g, err := config.LoadGoalsDefaults(path)

	require.NoError(t, err)
	assert.InDelta(t, 60000, g.AnnualBilling, 1e-9)
	assert.InDelta(t, 44, g.CommercialWeeks, 1e-9)
	assert.InDelta(t, 1250, g.ExchangeRate, 1e-9)
	assert.InDelta(t, domain.DefaultGoals.AverageTicket, g.AverageTicket, 1e-9)
}

func TestLoadGoalsDefaults_EmptyPath(t *testing.T) {
	g, err := config.LoadGoalsDefaults("")

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultGoals, g)
}

func TestLoadGoalsDefaults_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goals.yaml")
	require.NoError(t, os.WriteFile(path, []byte("commercialWeeks: 80\n"), 0o600))

	g, err := config.LoadGoalsDefaults(path)

	assert.Error(t, err)
	assert.Equal(t, domain.DefaultGoals, g)
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\nRATE_SOURCE=oficial\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("RATE_SOURCE", "")
	os.Unsetenv("RATE_SOURCE")

	require.NoError(t, config.LoadDotEnv(path))

	assert.Equal(t, "warn", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "oficial", os.Getenv("RATE_SOURCE"))
}
