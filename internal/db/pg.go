package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Open creates a new PostgreSQL connection pool
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}

	// Audit writes are small and bursty; a modest pool is enough
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().
		Int32("max_conns", cfg.MaxConns).
		Int32("min_conns", cfg.MinConns).
		Msg("postgres connection pool created")

	return pool, nil
}

// auditSchema creates the append-only audit table
const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	key         TEXT PRIMARY KEY,
	body        JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrate ensures the tables the gateway writes to exist
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, auditSchema); err != nil {
		return err
	}
	log.Info().Msg("audit schema ready")
	return nil
}
