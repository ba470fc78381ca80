package clickhouse

import (
	"context"
	"fmt"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/storage"
)

// TrajectoryStore implements storage.TrajectoryStore using ClickHouse.
// Each ensemble is stored as one row per (trial, step).
type TrajectoryStore struct {
	conn *Conn
}

// NewTrajectoryStore creates a new TrajectoryStore.
func NewTrajectoryStore(conn *Conn) *TrajectoryStore {
	return &TrajectoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TrajectoryStore = (*TrajectoryStore)(nil)

// InsertEnsemble stores every trajectory of a run. Returns ErrDuplicateKey if run_id exists.
func (s *TrajectoryStore) InsertEnsemble(ctx context.Context, runID string, ens *domain.Ensemble) error {
	if runID == "" || ens == nil || ens.TrialCount() == 0 {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, runID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO simulation_trajectories (
			run_id, trial, step, cumulative_return
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for trial, values := range ens.Trials {
		for step, v := range values {
			if err := batch.Append(runID, uint32(trial), uint32(step), v); err != nil {
				return fmt.Errorf("append to batch: %w", err)
			}
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetEnsemble rebuilds the ensemble of a run. Returns ErrNotFound if not exists.
func (s *TrajectoryStore) GetEnsemble(ctx context.Context, runID string) (*domain.Ensemble, error) {
	query := `
		SELECT trial, step, cumulative_return
		FROM simulation_trajectories
		WHERE run_id = ?
		ORDER BY trial ASC, step ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	ens, err := scanEnsemble(rows)
	if err != nil {
		return nil, err
	}
	if ens.TrialCount() == 0 {
		return nil, storage.ErrNotFound
	}
	return ens, nil
}

// exists checks if trajectories for the run exist.
func (s *TrajectoryStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM simulation_trajectories WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanEnsemble assembles rows ordered by (trial, step) into trajectories.
func scanEnsemble(rows chRows) (*domain.Ensemble, error) {
	ens := &domain.Ensemble{}

	for rows.Next() {
		var trial, step uint32
		var value float64

		if err := rows.Scan(&trial, &step, &value); err != nil {
			return nil, fmt.Errorf("scan trajectory row: %w", err)
		}

		for int(trial) >= len(ens.Trials) {
			ens.Trials = append(ens.Trials, nil)
		}
		if int(step) != len(ens.Trials[trial]) {
			return nil, fmt.Errorf("trajectory %d: expected step %d, got %d", trial, len(ens.Trials[trial]), step)
		}
		ens.Trials[trial] = append(ens.Trials[trial], value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trajectory rows: %w", err)
	}

	return ens, nil
}
