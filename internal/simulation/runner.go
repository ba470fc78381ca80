package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/idhash"
	"portfolio-montecarlo/internal/metrics"
	"portfolio-montecarlo/internal/normalization"
	"portfolio-montecarlo/internal/observability"
	"portfolio-montecarlo/internal/storage"
)

// Runner loads price history, runs the engine and persists the result.
// Any store may be nil; a nil store skips that step.
type Runner struct {
	prices       storage.PriceStore
	runs         storage.SimulationRunStore
	trajectories storage.TrajectoryStore
	logger       *zap.Logger
	now          func() time.Time
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	PriceStore      storage.PriceStore
	RunStore        storage.SimulationRunStore
	TrajectoryStore storage.TrajectoryStore
	Logger          *zap.Logger
	Now             func() time.Time // defaults to time.Now
}

// NewRunner creates a new runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		prices:       opts.PriceStore,
		runs:         opts.RunStore,
		trajectories: opts.TrajectoryStore,
		logger:       logger,
		now:          now,
	}
}

// RunRequest describes one simulation.
type RunRequest struct {
	Assets   []string  // empty = every asset in the history
	From     time.Time // zero = unbounded
	To       time.Time // zero = unbounded
	Weights  []float64 // nil = equal weights
	Config   domain.SimulationConfig
	Progress ProgressFunc
}

// RunResult is the outcome of a simulation.
type RunResult struct {
	Run        *domain.SimulationRun
	Ensemble   *domain.Ensemble
	Parameters []domain.ReturnParameters
	Cached     bool // true if a stored run with the same inputs was returned
}

// Run loads history for the requested assets from the price store and simulates it.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if r.prices == nil {
		return nil, fmt.Errorf("%w: no price store configured", ErrInvalidInput)
	}

	assets := req.Assets
	if len(assets) == 0 {
		all, err := r.prices.ListAssets(ctx)
		if err != nil {
			return nil, fmt.Errorf("list assets: %w", err)
		}
		assets = all
	}

	start := time.Now()
	points, err := r.prices.GetByAssetsInRange(ctx, assets, req.From, req.To)
	observability.RecordDBQuery("prices", "get_by_assets_in_range", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no stored prices for %v", ErrInsufficientHistory, assets)
	}

	table, err := normalization.BuildPriceTable(points, assets)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInsufficientHistory, err)
	}

	r.logger.Debug("loaded price history",
		zap.Strings("assets", table.Assets()),
		zap.Int("rows", table.Len()),
	)
	return r.RunTable(ctx, table, req)
}

// RunTable simulates an in-memory price table.
// req.Assets, req.From and req.To are ignored.
//
// With a fixed seed the run ID is known up front: if that run is already
// stored (and its trajectories are available) it is returned without simulating.
func (r *Runner) RunTable(ctx context.Context, table *domain.PriceTable, req RunRequest) (*RunResult, error) {
	cfg := withDefaults(req.Config)

	engine, err := NewEngine(table,
		WithWeights(req.Weights),
		WithConfig(cfg),
		WithLogger(r.logger),
		WithProgress(req.Progress),
	)
	if err != nil {
		return nil, err
	}

	dates := table.Dates()
	inputs := idhash.RunInputs{
		Assets:      engine.Assets(),
		Weights:     engine.Weights(),
		Trials:      cfg.Trials,
		HorizonDays: cfg.HorizonDays,
		HistoryFrom: dates[0],
		HistoryTo:   dates[len(dates)-1],
		PriceDigest: idhash.HistoryDigest(table, engine.Assets()),
	}

	if cfg.Seed != nil {
		inputs.Seed = *cfg.Seed
		if cached, ok := r.lookup(ctx, idhash.ComputeRunID(inputs)); ok {
			observability.RecordSimulationRun(observability.StatusCached, 0, 0, 0, 0)
			return cached, nil
		}
	}

	done := observability.SimulationStarted()
	defer done()

	started := time.Now()
	ens, err := engine.Run(ctx)
	elapsed := time.Since(started)
	if err != nil {
		observability.RecordSimulationRun(observability.StatusFailed, cfg.Trials, cfg.HorizonDays, elapsed.Seconds(), 0)
		return nil, err
	}

	params, err := engine.Parameters()
	if err != nil {
		return nil, err
	}

	inputs.Seed = engine.LastSeed()
	run := &domain.SimulationRun{
		RunID:       idhash.ComputeRunID(inputs),
		Assets:      inputs.Assets,
		Weights:     inputs.Weights,
		Trials:      cfg.Trials,
		HorizonDays: cfg.HorizonDays,
		Seed:        inputs.Seed,
		HistoryFrom: inputs.HistoryFrom,
		HistoryTo:   inputs.HistoryTo,
		Summary:     *metrics.Summarize(ens.FinalValues()),
		DurationMs:  elapsed.Milliseconds(),
		CreatedAt:   r.now().UTC(),
	}

	run, err = r.persist(ctx, run, ens)
	if err != nil {
		observability.RecordSimulationRun(observability.StatusFailed, cfg.Trials, cfg.HorizonDays, elapsed.Seconds(), 0)
		return nil, err
	}

	observability.RecordSimulationRun(observability.StatusSuccess, cfg.Trials, cfg.HorizonDays,
		elapsed.Seconds(), run.CreatedAt.Unix())

	r.logger.Info("simulation run complete",
		zap.String("run_id", run.RunID),
		zap.Float64("mean", run.Summary.Mean),
		zap.Float64("ci_lower", run.Summary.CI.Lower),
		zap.Float64("ci_upper", run.Summary.CI.Upper),
	)

	return &RunResult{Run: run, Ensemble: ens, Parameters: params}, nil
}

// lookup returns a stored run and its trajectories.
func (r *Runner) lookup(ctx context.Context, runID string) (*RunResult, bool) {
	if r.runs == nil || r.trajectories == nil {
		return nil, false
	}
	run, err := r.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, false
	}
	ens, err := r.trajectories.GetEnsemble(ctx, runID)
	if err != nil {
		return nil, false
	}
	r.logger.Info("returning stored simulation run", zap.String("run_id", runID))
	return &RunResult{Run: run, Ensemble: ens, Cached: true}, true
}

// persist stores the run and its trajectories.
// An existing run with the same ID is kept and returned instead.
func (r *Runner) persist(ctx context.Context, run *domain.SimulationRun, ens *domain.Ensemble) (*domain.SimulationRun, error) {
	if r.runs != nil {
		start := time.Now()
		err := r.runs.Insert(ctx, run)
		observability.RecordDBQuery("runs", "insert", time.Since(start).Seconds(), err)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			existing, getErr := r.runs.GetByID(ctx, run.RunID)
			if getErr != nil {
				return nil, fmt.Errorf("load existing run %s: %w", run.RunID, getErr)
			}
			run = existing
		case err != nil:
			return nil, fmt.Errorf("store run %s: %w", run.RunID, err)
		}
	}

	if r.trajectories != nil {
		start := time.Now()
		err := r.trajectories.InsertEnsemble(ctx, run.RunID, ens)
		observability.RecordDBQuery("trajectories", "insert_ensemble", time.Since(start).Seconds(), err)
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("store trajectories %s: %w", run.RunID, err)
		}
	}

	return run, nil
}

// withDefaults fills zero sizes from the default configuration.
func withDefaults(cfg domain.SimulationConfig) domain.SimulationConfig {
	def := domain.DefaultSimulationConfig()
	if cfg.Trials == 0 {
		cfg.Trials = def.Trials
	}
	if cfg.HorizonDays == 0 {
		cfg.HorizonDays = def.HorizonDays
	}
	if cfg.Workers == 0 {
		cfg.Workers = def.Workers
	}
	return cfg
}
