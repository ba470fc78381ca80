package simulation

import (
	"go.uber.org/zap"

	"portfolio-montecarlo/internal/domain"
)

// ProgressFunc is called after each completed trial.
// Calls are serialized; done counts completed trials.
type ProgressFunc func(done, total int)

// Option configures an Engine.
type Option func(*options)

type options struct {
	weights  []float64
	cfg      domain.SimulationConfig
	logger   *zap.Logger
	progress ProgressFunc
}

func defaultOptions() options {
	return options{
		cfg:    domain.DefaultSimulationConfig(),
		logger: zap.NewNop(),
	}
}

// WithWeights sets portfolio weights in table asset order.
// Without it every asset gets an equal weight.
func WithWeights(weights []float64) Option {
	return func(o *options) {
		o.weights = append([]float64(nil), weights...)
	}
}

// WithConfig replaces the whole simulation configuration.
func WithConfig(cfg domain.SimulationConfig) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithTrials sets the number of trials.
func WithTrials(n int) Option {
	return func(o *options) {
		o.cfg.Trials = n
	}
}

// WithHorizonDays sets the number of simulated trading days.
func WithHorizonDays(n int) Option {
	return func(o *options) {
		o.cfg.HorizonDays = n
	}
}

// WithWorkers sets the number of parallel trial workers.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.cfg.Workers = n
	}
}

// WithSeed fixes the random source so runs are reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.cfg.Seed = &seed
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}
