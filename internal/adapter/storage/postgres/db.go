// Package postgres stores the backend mirror of merchant ledgers and the
// persisted audit trail.
package postgres

import (
	"context"
	"fmt"

	"github.com/zomasamka-bot/flashpay/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Pool is the subset of *pgxpool.Pool the repositories use. pgxmock
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool opens a pgx pool for cfg and pings it.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("dbname", cfg.DBName).
		Int32("max_conns", poolCfg.MaxConns).
		Msg("mirror database connected")
	return pool, nil
}

// poolConfig applies the configured limits on top of pgx's defaults. Zero
// values keep the pgx default.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MinConns > poolCfg.MaxConns {
		return nil, fmt.Errorf("min_conns %d exceeds max_conns %d", cfg.MinConns, poolCfg.MaxConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	return poolCfg, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS payments (
		id                  TEXT PRIMARY KEY,
		merchant_id         TEXT NOT NULL,
		amount              NUMERIC(20,7) NOT NULL,
		note                TEXT NOT NULL DEFAULT '',
		status              TEXT NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL,
		paid_at             TIMESTAMPTZ,
		txid                TEXT,
		provider_payment_id TEXT,
		approved_at         TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS payments_merchant_idx ON payments (merchant_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS audit_trail (
		tracking_id TEXT PRIMARY KEY,
		operation   TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		merchant_id TEXT NOT NULL DEFAULT '',
		details     JSONB,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the mirror tables if they do not exist.
func EnsureSchema(ctx context.Context, pool Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
