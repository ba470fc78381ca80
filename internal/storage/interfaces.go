package storage

import (
	"context"
	"time"

	"portfolio-montecarlo/internal/domain"
)

// PriceStore provides access to daily_prices storage.
type PriceStore interface {
	// InsertBulk adds multiple daily bars. Fails entire batch on duplicate (asset, date).
	InsertBulk(ctx context.Context, points []*domain.PricePoint) error

	// GetByAsset retrieves all bars for an asset, ordered by date ASC.
	GetByAsset(ctx context.Context, asset string) ([]*domain.PricePoint, error)

	// GetByAssetsInRange retrieves bars for the given assets within [start, end] (inclusive),
	// ordered by date ASC then asset ASC. A zero start or end leaves that side unbounded.
	GetByAssetsInRange(ctx context.Context, assets []string, start, end time.Time) ([]*domain.PricePoint, error)

	// ListAssets returns the distinct stored assets in ascending order.
	ListAssets(ctx context.Context) ([]string, error)
}

// SimulationRunStore provides access to simulation_runs storage.
type SimulationRunStore interface {
	// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.SimulationRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error)

	// List returns the most recent runs, newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*domain.SimulationRun, error)
}

// TrajectoryStore provides access to simulation_trajectories storage.
type TrajectoryStore interface {
	// InsertEnsemble stores every trajectory of a run. Returns ErrDuplicateKey
	// if trajectories for run_id exist.
	InsertEnsemble(ctx context.Context, runID string, ens *domain.Ensemble) error

	// GetEnsemble rebuilds the ensemble of a run. Returns ErrNotFound if not exists.
	GetEnsemble(ctx context.Context, runID string) (*domain.Ensemble, error)
}
