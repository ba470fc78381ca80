package domain

import "time"

// Simulation defaults.
const (
	DefaultTrials      = 1000
	DefaultHorizonDays = 252 // one year of trading days
	DefaultWorkers     = 1
)

// Confidence interval quantiles over final cumulative returns.
const (
	CILowerQuantile = 0.025
	CIUpperQuantile = 0.975
)

// SimulationConfig controls the size of a simulation.
type SimulationConfig struct {
	Trials      int     // number of independent trials
	HorizonDays int     // trading days simulated per trial
	Workers     int     // parallel trial workers, 1 = sequential
	Seed        *uint64 // nil = fresh random seed per run
}

// DefaultSimulationConfig returns the default configuration.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Trials:      DefaultTrials,
		HorizonDays: DefaultHorizonDays,
		Workers:     DefaultWorkers,
	}
}

// ReturnParameters describes the fitted daily return distribution of one asset.
type ReturnParameters struct {
	Asset     string
	LastClose float64 // start of every simulated path
	Mean      float64 // mean daily return
	StdDev    float64 // sample standard deviation of daily returns
	Samples   int     // number of non-NaN returns used
}

// Ensemble holds one cumulative-return trajectory per trial.
// Trials[i] has HorizonDays+1 values starting at 1.0.
type Ensemble struct {
	Trials [][]float64
}

// NewEnsemble allocates an ensemble of trials x (horizon+1) values.
func NewEnsemble(trials, horizonDays int) *Ensemble {
	cols := make([][]float64, trials)
	for i := range cols {
		cols[i] = make([]float64, horizonDays+1)
	}
	return &Ensemble{Trials: cols}
}

// TrialCount returns the number of trials.
func (e *Ensemble) TrialCount() int {
	return len(e.Trials)
}

// Steps returns the trajectory length (horizon + 1).
func (e *Ensemble) Steps() int {
	if len(e.Trials) == 0 {
		return 0
	}
	return len(e.Trials[0])
}

// FinalValues returns the last value of every trajectory.
func (e *Ensemble) FinalValues() []float64 {
	out := make([]float64, len(e.Trials))
	for i, tr := range e.Trials {
		if len(tr) > 0 {
			out[i] = tr[len(tr)-1]
		}
	}
	return out
}

// Row returns the values of all trials at step t.
func (e *Ensemble) Row(t int) []float64 {
	out := make([]float64, len(e.Trials))
	for i, tr := range e.Trials {
		out[i] = tr[t]
	}
	return out
}

// ConfidenceInterval is the empirical 95% band of final cumulative returns.
type ConfidenceInterval struct {
	Lower float64 // 2.5th percentile
	Upper float64 // 97.5th percentile
}

// Summary labels, in presentation order.
const (
	SummaryCount   = "count"
	SummaryMean    = "mean"
	SummaryStd     = "std"
	SummaryMin     = "min"
	SummaryP25     = "25%"
	SummaryP50     = "50%"
	SummaryP75     = "75%"
	SummaryMax     = "max"
	SummaryCILower = "95% CI Lower"
	SummaryCIUpper = "95% CI Upper"
)

// Summary holds descriptive statistics of final cumulative returns.
type Summary struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	P25   float64
	P50   float64
	P75   float64
	Max   float64
	CI    ConfidenceInterval
}

// NamedValue is one labelled summary entry.
type NamedValue struct {
	Name  string
	Value float64
}

// Entries returns the summary as ordered named values, CI bounds last.
func (s *Summary) Entries() []NamedValue {
	return []NamedValue{
		{SummaryCount, float64(s.Count)},
		{SummaryMean, s.Mean},
		{SummaryStd, s.Std},
		{SummaryMin, s.Min},
		{SummaryP25, s.P25},
		{SummaryP50, s.P50},
		{SummaryP75, s.P75},
		{SummaryMax, s.Max},
		{SummaryCILower, s.CI.Lower},
		{SummaryCIUpper, s.CI.Upper},
	}
}

// SimulationRun is a persisted simulation result.
// Corresponds to simulation_runs table in PostgreSQL.
type SimulationRun struct {
	RunID       string    // deterministic hash of inputs, base58
	Assets      []string  // asset order matches Weights
	Weights     []float64 // normalized portfolio weights
	Trials      int
	HorizonDays int
	Seed        uint64
	HistoryFrom time.Time // first date of the price history
	HistoryTo   time.Time // last date of the price history
	Summary     Summary
	DurationMs  int64
	CreatedAt   time.Time
}

// TrajectoryPoint is one cumulative-return value of a stored ensemble.
// Corresponds to simulation_trajectories table in ClickHouse.
type TrajectoryPoint struct {
	RunID            string
	Trial            int
	Step             int
	CumulativeReturn float64
}
