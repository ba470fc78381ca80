package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/storage"
)

// SimulationRunStore implements storage.SimulationRunStore using PostgreSQL.
type SimulationRunStore struct {
	pool *Pool
}

// NewSimulationRunStore creates a new SimulationRunStore.
func NewSimulationRunStore(pool *Pool) *SimulationRunStore {
	return &SimulationRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SimulationRunStore = (*SimulationRunStore)(nil)

const selectRunColumns = `
	SELECT run_id, assets, weights, trials, horizon_days, seed, history_from, history_to,
		final_count, final_mean, final_std, final_min, final_p25, final_p50, final_p75, final_max,
		ci_lower, ci_upper, duration_ms, created_at
	FROM simulation_runs
`

// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
// The uint64 seed is stored bit-for-bit in a BIGINT column.
func (s *SimulationRunStore) Insert(ctx context.Context, run *domain.SimulationRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO simulation_runs (
			run_id, assets, weights, trials, horizon_days, seed, history_from, history_to,
			final_count, final_mean, final_std, final_min, final_p25, final_p50, final_p75, final_max,
			ci_lower, ci_upper, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	sum := run.Summary
	_, err := s.pool.Exec(ctx, query,
		run.RunID,
		run.Assets,
		run.Weights,
		run.Trials,
		run.HorizonDays,
		int64(run.Seed),
		run.HistoryFrom,
		run.HistoryTo,
		sum.Count,
		sum.Mean,
		sum.Std,
		sum.Min,
		sum.P25,
		sum.P50,
		sum.P75,
		sum.Max,
		sum.CI.Lower,
		sum.CI.Upper,
		run.DurationMs,
		run.CreatedAt,
	)
	return translateError("insert simulation run", err)
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SimulationRunStore) GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	row := s.pool.QueryRow(ctx, selectRunColumns+` WHERE run_id = $1`, runID)
	run, err := scanRun(row)
	if err != nil {
		return nil, translateError("get simulation run by id", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *SimulationRunStore) List(ctx context.Context, limit int) ([]*domain.SimulationRun, error) {
	query := selectRunColumns + ` ORDER BY created_at DESC, run_id ASC`

	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.pool.Query(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = s.pool.Query(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list simulation runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.SimulationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan simulation run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation run rows: %w", err)
	}

	return runs, nil
}

// scanRun scans a single row into a SimulationRun.
func scanRun(row pgx.Row) (*domain.SimulationRun, error) {
	var r domain.SimulationRun
	var seed int64

	err := row.Scan(
		&r.RunID,
		&r.Assets,
		&r.Weights,
		&r.Trials,
		&r.HorizonDays,
		&seed,
		&r.HistoryFrom,
		&r.HistoryTo,
		&r.Summary.Count,
		&r.Summary.Mean,
		&r.Summary.Std,
		&r.Summary.Min,
		&r.Summary.P25,
		&r.Summary.P50,
		&r.Summary.P75,
		&r.Summary.Max,
		&r.Summary.CI.Lower,
		&r.Summary.CI.Upper,
		&r.DurationMs,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Seed = uint64(seed)
	return &r, nil
}
