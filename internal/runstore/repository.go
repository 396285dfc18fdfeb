package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/aegis-options/internal/search"
	"github.com/wonny/aegis-options/internal/strategyconfig"
	"github.com/wonny/aegis-options/pkg/database"
)

// Repository persists search runs
// ⭐ SSOT: 탐색 실행 이력 저장/조회는 여기서만
type Repository struct {
	db *database.DB
}

// NewRepository creates a new run repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// SaveRun stores the run header and its ranked strategies in one transaction
func (r *Repository) SaveRun(ctx context.Context, res *search.RunResult, snap *strategyconfig.RunSnapshot) error {
	filterJSON, err := json.Marshal(res.Filter)
	if err != nil {
		return fmt.Errorf("failed to marshal filter: %w", err)
	}
	statsJSON, err := json.Marshal(res.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	configYAML := ""
	if snap != nil {
		configYAML = snap.ConfigYAML
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO options.search_runs (
				run_id, strategy_id, config_hash, config_yaml, store_fingerprint,
				filter, stats, candidates, survivors, duration_ms, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			res.RunID, res.StrategyID, res.ConfigHash, configYAML, formatFingerprint(res.StoreFingerprint),
			filterJSON, statsJSON, res.Stats.Candidates, res.Stats.Survivors,
			res.Stats.Duration.Milliseconds(), res.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		batch := &pgx.Batch{}
		for i := range res.Ranked {
			s := toStored(&res.Ranked[i])
			legsJSON, err := json.Marshal(s.Legs)
			if err != nil {
				return fmt.Errorf("failed to marshal legs: %w", err)
			}
			batch.Queue(`
				INSERT INTO options.run_strategies (
					run_id, rank, legs_key, legs, score, premium,
					max_loss, max_profit, average_pnl, breakevens
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`,
				res.RunID, s.Rank, s.Key, legsJSON, s.Score, s.Premium,
				s.MaxLoss, s.MaxProfit, s.AveragePnL, s.Breakevens,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert strategies: %w", err)
		}
		return nil
	})
}

// GetRun loads one run with its strategies
func (r *Repository) GetRun(ctx context.Context, runID string) (*StoredRun, error) {
	var run StoredRun
	var fingerprint string
	var filterJSON, statsJSON []byte
	var durationMS int64

	err := r.db.Pool.QueryRow(ctx, `
		SELECT run_id, strategy_id, config_hash, config_yaml, store_fingerprint,
		       filter, stats, candidates, survivors, duration_ms, created_at
		FROM options.search_runs
		WHERE run_id = $1
	`, runID).Scan(
		&run.RunID, &run.StrategyID, &run.ConfigHash, &run.ConfigYAML, &fingerprint,
		&filterJSON, &statsJSON, &run.Candidates, &run.Survivors, &durationMS, &run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if run.StoreFingerprint, err = parseFingerprint(fingerprint); err != nil {
		return nil, fmt.Errorf("bad store fingerprint %q: %w", fingerprint, err)
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal(filterJSON, &run.Filter); err != nil {
		return nil, fmt.Errorf("failed to unmarshal filter: %w", err)
	}
	if err := json.Unmarshal(statsJSON, &run.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT rank, legs_key, legs, score, premium, max_loss, max_profit, average_pnl, breakevens
		FROM options.run_strategies
		WHERE run_id = $1
		ORDER BY rank
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	run.Strategies = make([]StoredStrategy, 0)
	for rows.Next() {
		var s StoredStrategy
		var legsJSON []byte
		if err := rows.Scan(
			&s.Rank, &s.Key, &legsJSON, &s.Score, &s.Premium,
			&s.MaxLoss, &s.MaxProfit, &s.AveragePnL, &s.Breakevens,
		); err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		if err := json.Unmarshal(legsJSON, &s.Legs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal legs: %w", err)
		}
		run.Strategies = append(run.Strategies, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &run, nil
}

// ListRuns returns the most recent runs, newest first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT run_id, strategy_id, config_hash, store_fingerprint,
		       candidates, survivors, duration_ms, created_at
		FROM options.search_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		var s RunSummary
		var fingerprint string
		var durationMS int64
		if err := rows.Scan(
			&s.RunID, &s.StrategyID, &s.ConfigHash, &fingerprint,
			&s.Candidates, &s.Survivors, &durationMS, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if s.StoreFingerprint, err = parseFingerprint(fingerprint); err != nil {
			return nil, fmt.Errorf("bad store fingerprint %q: %w", fingerprint, err)
		}
		s.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, s)
	}
	return runs, rows.Err()
}
