package verification

import (
	"context"
	"errors"
	"fmt"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/metrics"
	"portfolio-montecarlo/internal/normalization"
	"portfolio-montecarlo/internal/simulation"
	"portfolio-montecarlo/internal/storage"
)

// ErrRunNotFound is returned when run ID doesn't exist.
var ErrRunNotFound = errors.New("run not found")

// ReplayVerifier re-simulates stored runs from the price store.
type ReplayVerifier struct {
	runStore        storage.SimulationRunStore
	priceStore      storage.PriceStore
	trajectoryStore storage.TrajectoryStore // optional
	workers         int
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	RunStore        storage.SimulationRunStore
	PriceStore      storage.PriceStore
	TrajectoryStore storage.TrajectoryStore // nil = compare summaries only
	Workers         int                     // 0 = sequential
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	workers := opts.Workers
	if workers <= 0 {
		workers = domain.DefaultWorkers
	}
	return &ReplayVerifier{
		runStore:        opts.RunStore,
		priceStore:      opts.PriceStore,
		trajectoryStore: opts.TrajectoryStore,
		workers:         workers,
	}
}

// VerifyRun verifies a single run by replaying its simulation.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	// 1. Load stored run
	stored, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	// 2. Replay simulation
	ens, err := v.replay(ctx, stored)
	if err != nil {
		return nil, err
	}
	replayed := metrics.Summarize(ens.FinalValues())

	// 3. Compare results
	result := &VerificationResult{
		RunID:        runID,
		Divergences:  CompareSummaries(stored.Summary, *replayed),
		StoredMean:   stored.Summary.Mean,
		ReplayedMean: replayed.Mean,
	}

	if v.trajectoryStore != nil {
		storedEns, err := v.trajectoryStore.GetEnsemble(ctx, runID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// summary-only run
		case err != nil:
			return nil, err
		default:
			delta, div := CompareEnsembles(storedEns, ens)
			result.PathsCompared = true
			result.MaxPathDelta = delta
			if div != nil {
				result.Divergences = append(result.Divergences, *div)
			} else if delta > FloatTolerance {
				result.Divergences = append(result.Divergences, FieldDivergence{
					Field:    "Trajectories",
					Expected: 0.0,
					Actual:   delta,
				})
			}
		}
	}

	result.Match = len(result.Divergences) == 0
	return result, nil
}

// VerifyAll verifies all stored runs.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	runs, err := v.runStore.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalRuns: len(runs),
		Results:   make([]VerificationResult, 0, len(runs)),
	}

	for _, run := range runs {
		result, err := v.VerifyRun(ctx, run.RunID)
		if err != nil {
			// Record error as divergence
			report.Results = append(report.Results, VerificationResult{
				RunID:      run.RunID,
				StoredMean: run.Summary.Mean,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentRuns++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	return report, nil
}

// replay rebuilds the price table of a stored run and re-simulates it with the stored seed.
func (v *ReplayVerifier) replay(ctx context.Context, run *domain.SimulationRun) (*domain.Ensemble, error) {
	points, err := v.priceStore.GetByAssetsInRange(ctx, run.Assets, run.HistoryFrom, run.HistoryTo)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}

	table, err := normalization.BuildPriceTable(points, run.Assets)
	if err != nil {
		return nil, fmt.Errorf("rebuild price table: %w", err)
	}

	engine, err := simulation.NewEngine(table,
		simulation.WithWeights(run.Weights),
		simulation.WithTrials(run.Trials),
		simulation.WithHorizonDays(run.HorizonDays),
		simulation.WithWorkers(v.workers),
		simulation.WithSeed(run.Seed),
	)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx)
}
