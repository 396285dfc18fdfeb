package runstore

import (
	"context"
	"fmt"

	"github.com/wonny/aegis-options/pkg/database"
)

// Schema creates the run history tables
const Schema = `
CREATE SCHEMA IF NOT EXISTS options;

CREATE TABLE IF NOT EXISTS options.search_runs (
	run_id            TEXT PRIMARY KEY,
	strategy_id       TEXT NOT NULL,
	config_hash       CHAR(64) NOT NULL,
	config_yaml       TEXT NOT NULL DEFAULT '',
	store_fingerprint CHAR(16) NOT NULL,
	filter            JSONB NOT NULL,
	stats             JSONB NOT NULL,
	candidates        BIGINT NOT NULL,
	survivors         BIGINT NOT NULL,
	duration_ms       BIGINT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_search_runs_created ON options.search_runs (created_at DESC);

CREATE TABLE IF NOT EXISTS options.run_strategies (
	run_id      TEXT NOT NULL REFERENCES options.search_runs (run_id) ON DELETE CASCADE,
	rank        INT NOT NULL,
	legs_key    TEXT NOT NULL,
	legs        JSONB NOT NULL,
	score       NUMERIC(20, 8) NOT NULL,
	premium     NUMERIC(20, 6) NOT NULL,
	max_loss    NUMERIC(20, 6) NOT NULL,
	max_profit  NUMERIC(20, 6) NOT NULL,
	average_pnl NUMERIC(20, 6) NOT NULL,
	breakevens  DOUBLE PRECISION[] NOT NULL,
	PRIMARY KEY (run_id, rank)
);
`

// EnsureSchema applies Schema (idempotent)
func EnsureSchema(ctx context.Context, db *database.DB) error {
	if _, err := db.Pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure run schema: %w", err)
	}
	return nil
}
