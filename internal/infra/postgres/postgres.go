// Package postgres is a direct PostgreSQL backend for the record store,
// for deployments that run against a plain database instead of Supabase.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("postgres")

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPoolConfig is a pool sized for one BFA instance.
var DefaultPoolConfig = PoolConfig{
	MaxConns:        10,
	MinConns:        2,
	MaxConnLifetime: time.Hour,
	MaxConnIdleTime: 30 * time.Minute,
}

// Connect opens and pings a pool for databaseURL.
func Connect(ctx context.Context, databaseURL string, cfg PoolConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Info("connected to postgres",
		zap.String("database", poolConfig.ConnConfig.Database),
		zap.Int32("max_conns", cfg.MaxConns),
	)
	return pool, nil
}

// migrations create the schema the repository reads and writes.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		date DATE NOT NULL,
		type TEXT NOT NULL,
		contact_id TEXT,
		contact_name TEXT,
		notes TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_agent ON activities(agent_id, date)`,
	`CREATE TABLE IF NOT EXISTS closings (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		property_id TEXT,
		manual_property TEXT,
		buyer_client_id TEXT,
		manual_buyer TEXT,
		date DATE NOT NULL,
		currency TEXT NOT NULL,
		sale_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		commission_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		sides INTEGER NOT NULL,
		sub_split_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		agent_honorarium DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_billing DOUBLE PRECISION NOT NULL DEFAULT 0,
		operation_type TEXT NOT NULL DEFAULT 'venta',
		exchange_rate_snapshot DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_closings_agent ON closings(agent_id, date)`,
	`CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		seller_id TEXT,
		title TEXT NOT NULL DEFAULT '',
		address TEXT,
		status TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL DEFAULT 0,
		currency TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS visits (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		property_id TEXT NOT NULL,
		buyer_client_id TEXT,
		date DATE NOT NULL,
		status TEXT NOT NULL,
		feedback TEXT,
		next_steps TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS buyer_clients (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT,
		email TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS seller_clients (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT,
		email TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS buyer_searches (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		buyer_client_id TEXT NOT NULL,
		zone TEXT,
		budget_min DOUBLE PRECISION NOT NULL DEFAULT 0,
		budget_max DOUBLE PRECISION NOT NULL DEFAULT 0,
		currency TEXT NOT NULL,
		status TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS financial_goals (
		agent_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		annual_billing DOUBLE PRECISION NOT NULL DEFAULT 0,
		average_ticket DOUBLE PRECISION NOT NULL DEFAULT 0,
		is_manual_ticket BOOLEAN NOT NULL DEFAULT false,
		average_commission DOUBLE PRECISION NOT NULL DEFAULT 0,
		commission_split DOUBLE PRECISION NOT NULL DEFAULT 0,
		commercial_weeks DOUBLE PRECISION NOT NULL DEFAULT 0,
		manual_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
		is_manual_ratio BOOLEAN NOT NULL DEFAULT false,
		exchange_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		captation_goal_qty INTEGER NOT NULL DEFAULT 0,
		captation_start_date DATE,
		captation_end_date DATE,
		manual_captation_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
		is_manual_captation_ratio BOOLEAN NOT NULL DEFAULT false,
		PRIMARY KEY (agent_id, year)
	)`,
	`CREATE TABLE IF NOT EXISTS team_members (
		mother_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (mother_id, agent_id)
	)`,
}

// Migrate creates any missing table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	logger.Info("postgres migrations applied", zap.Int("statements", len(migrations)))
	return nil
}
