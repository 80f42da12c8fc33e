package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// NewPgxPool connects a pgx pool with a bounded connect timeout.
func NewPgxPool(ctx context.Context, dsn string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.ConnectConfig(cctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool connect: %w", err)
	}
	return pool, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS lookup_jobs (
    id              UUID PRIMARY KEY,
    owner_id        TEXT        NOT NULL,
    kind            TEXT        NOT NULL,
    status          TEXT        NOT NULL,
    items           JSONB       NOT NULL,
    cursor          INT         NOT NULL DEFAULT 0,
    processed_count INT         NOT NULL DEFAULT 0,
    success_count   INT         NOT NULL DEFAULT 0,
    fail_count      INT         NOT NULL DEFAULT 0,
    attempts        INT         NOT NULL DEFAULT 0,
    error_message   TEXT        NOT NULL DEFAULT '',
    source_label    TEXT        NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL,
    completed_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_lookup_jobs_owner_created
    ON lookup_jobs (owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_lookup_jobs_status_updated
    ON lookup_jobs (status, updated_at);
`

// EnsureSchema creates the jobs table if it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
