// Package simulation projects portfolio cumulative returns by Monte Carlo
// simulation of independent Gaussian random walks per asset.
package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/metrics"
	"portfolio-montecarlo/internal/normalization"
)

// minWeightSum is the lowest accepted weight sum after rounding to two decimals.
const minWeightSum = 0.99

// minReturnSamples is the number of daily returns needed for a sample stddev.
const minReturnSamples = 2

// Engine runs Monte Carlo simulations over a validated price table.
// The price table and weights are read-only after construction.
// Return parameters are estimated on first use; the ensemble is cached
// until the next Run.
type Engine struct {
	table    *domain.PriceTable
	assets   []string
	weights  []float64
	cfg      domain.SimulationConfig
	logger   *zap.Logger
	progress ProgressFunc

	mu       sync.Mutex
	params   []domain.ReturnParameters
	ensemble *domain.Ensemble
	ci       domain.ConfidenceInterval
	lastSeed uint64
}

// NewEngine validates the inputs and returns an engine.
//
// Validation:
//   - table must be structurally valid (ErrInvalidInput)
//   - trials, horizon and workers must be positive (ErrInvalidInput)
//   - explicit weights need one entry per asset (ErrInvalidInput) and a sum
//     of at least 0.99 after rounding to two decimals (ErrInvalidWeights)
//   - every asset needs at least 2 prices and 2 usable daily returns (ErrInsufficientHistory)
//
// Missing daily_return columns are derived from close prices on a copy of the table.
func NewEngine(table *domain.PriceTable, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if table == nil {
		return nil, fmt.Errorf("%w: price table is nil", ErrInvalidInput)
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := validateConfig(o.cfg); err != nil {
		return nil, err
	}

	assets := table.Assets()
	weights, err := resolveWeights(o.weights, len(assets))
	if err != nil {
		return nil, err
	}

	if table.Len() < minReturnSamples {
		return nil, fmt.Errorf("%w: %d price point(s), need at least %d",
			ErrInsufficientHistory, table.Len(), minReturnSamples)
	}

	withReturns, err := normalization.WithDailyReturns(table)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	for _, a := range assets {
		returns, _ := withReturns.Column(a, domain.FieldDailyReturn)
		if n := countFinite(returns); n < minReturnSamples {
			return nil, fmt.Errorf("%w: asset %s has %d usable daily return(s), need at least %d",
				ErrInsufficientHistory, a, n, minReturnSamples)
		}
	}

	return &Engine{
		table:    withReturns,
		assets:   assets,
		weights:  weights,
		cfg:      o.cfg,
		logger:   o.logger,
		progress: o.progress,
	}, nil
}

// Table returns the engine's price table, including derived daily returns.
func (e *Engine) Table() *domain.PriceTable {
	return e.table
}

// Assets returns asset identifiers in weight order.
func (e *Engine) Assets() []string {
	return append([]string(nil), e.assets...)
}

// Weights returns the portfolio weights in asset order.
func (e *Engine) Weights() []float64 {
	return append([]float64(nil), e.weights...)
}

// Config returns the simulation configuration.
func (e *Engine) Config() domain.SimulationConfig {
	return e.cfg
}

// LastSeed returns the seed used by the most recent run.
// Zero if no run has completed.
func (e *Engine) LastSeed() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSeed
}

// Parameters returns the fitted per-asset return parameters,
// estimating them on first call.
func (e *Engine) Parameters() ([]domain.ReturnParameters, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	params, err := e.parametersLocked()
	if err != nil {
		return nil, err
	}
	return append([]domain.ReturnParameters(nil), params...), nil
}

// Run generates a fresh ensemble and replaces the cached one.
// Each call draws new random trials unless a seed is fixed.
// On error (including context cancellation) the cached state is unchanged.
func (e *Engine) Run(ctx context.Context) (*domain.Ensemble, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runLocked(ctx)
}

// Trajectories returns the cached ensemble, running the simulation if absent.
// Successive calls without Run return the same ensemble.
func (e *Engine) Trajectories(ctx context.Context) (*domain.Ensemble, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensureLocked(ctx)
}

// FinalDistribution returns the final cumulative return of every trial and the
// 95% confidence interval, running the simulation if absent.
func (e *Engine) FinalDistribution(ctx context.Context) ([]float64, domain.ConfidenceInterval, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ens, err := e.ensureLocked(ctx)
	if err != nil {
		return nil, domain.ConfidenceInterval{}, err
	}
	return ens.FinalValues(), e.ci, nil
}

// Summarize returns descriptive statistics of final cumulative returns with
// the confidence interval bounds, running the simulation if absent.
func (e *Engine) Summarize(ctx context.Context) (*domain.Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ens, err := e.ensureLocked(ctx)
	if err != nil {
		return nil, err
	}
	return metrics.Summarize(ens.FinalValues()), nil
}

func (e *Engine) ensureLocked(ctx context.Context) (*domain.Ensemble, error) {
	if e.ensemble != nil {
		return e.ensemble, nil
	}
	return e.runLocked(ctx)
}

func (e *Engine) runLocked(ctx context.Context) (*domain.Ensemble, error) {
	params, err := e.parametersLocked()
	if err != nil {
		return nil, err
	}

	seed := rand.Uint64()
	if e.cfg.Seed != nil {
		seed = *e.cfg.Seed
	}

	start := time.Now()
	e.logger.Info("starting monte carlo simulation",
		zap.Int("trials", e.cfg.Trials),
		zap.Int("horizon_days", e.cfg.HorizonDays),
		zap.Int("assets", len(e.assets)),
		zap.Int("workers", e.cfg.Workers),
		zap.Uint64("seed", seed),
	)

	ens := domain.NewEnsemble(e.cfg.Trials, e.cfg.HorizonDays)
	g := &generator{
		params:   params,
		weights:  e.weights,
		horizon:  e.cfg.HorizonDays,
		seed:     seed,
		logger:   e.logger,
		progress: e.progress,
	}
	if err := g.generate(ctx, ens, e.cfg.Workers); err != nil {
		return nil, err
	}

	final := ens.FinalValues()
	sorted := append([]float64(nil), final...)
	sort.Float64s(sorted)

	e.ensemble = ens
	e.ci = metrics.ConfidenceInterval(sorted)
	e.lastSeed = seed

	e.logger.Info("monte carlo simulation complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Float64("ci_lower", e.ci.Lower),
		zap.Float64("ci_upper", e.ci.Upper),
	)

	return ens, nil
}

func (e *Engine) parametersLocked() ([]domain.ReturnParameters, error) {
	if e.params != nil {
		return e.params, nil
	}
	params, err := EstimateParameters(e.table)
	if err != nil {
		return nil, err
	}
	e.params = params
	return params, nil
}

// validateConfig checks the simulation sizes.
func validateConfig(cfg domain.SimulationConfig) error {
	if cfg.Trials <= 0 {
		return fmt.Errorf("%w: trial count must be positive, got %d", ErrInvalidInput, cfg.Trials)
	}
	if cfg.HorizonDays <= 0 {
		return fmt.Errorf("%w: horizon must be positive, got %d", ErrInvalidInput, cfg.HorizonDays)
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("%w: worker count must be positive, got %d", ErrInvalidInput, cfg.Workers)
	}
	return nil
}

// resolveWeights returns equal weights when none are given, otherwise
// validates the supplied weights.
func resolveWeights(weights []float64, assetCount int) ([]float64, error) {
	if weights == nil {
		return EqualWeights(assetCount), nil
	}
	if len(weights) != assetCount {
		return nil, fmt.Errorf("%w: %d weight(s) for %d asset(s)", ErrInvalidInput, len(weights), assetCount)
	}

	sum := 0.0
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight %d is not finite", ErrInvalidWeights, i)
		}
		sum += w
	}
	if math.Round(sum*100)/100 < minWeightSum {
		return nil, fmt.Errorf("%w: got %.4f", ErrInvalidWeights, sum)
	}
	return append([]float64(nil), weights...), nil
}

// EqualWeights returns n weights of 1/n.
func EqualWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

func countFinite(values []float64) int {
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			n++
		}
	}
	return n
}
