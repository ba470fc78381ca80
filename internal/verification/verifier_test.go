package verification

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/simulation"
	"portfolio-montecarlo/internal/storage/memory"
)

func TestCompareSummaries_Identical(t *testing.T) {
	s := domain.Summary{Count: 3, Mean: 1.1, Std: 0.2, Min: 0.9, Max: 1.3, CI: domain.ConfidenceInterval{Lower: 0.91, Upper: 1.29}}
	assert.Empty(t, CompareSummaries(s, s))
}

func TestCompareSummaries_WithinTolerance(t *testing.T) {
	a := domain.Summary{Count: 3, Mean: 1.1}
	b := a
	b.Mean += FloatTolerance / 2
	assert.Empty(t, CompareSummaries(a, b))
}

func TestCompareSummaries_Divergent(t *testing.T) {
	a := domain.Summary{Count: 3, Mean: 1.1, CI: domain.ConfidenceInterval{Upper: 1.3}}
	b := a
	b.Count = 4
	b.CI.Upper = 1.4

	divs := CompareSummaries(a, b)
	require.Len(t, divs, 2)
	assert.Equal(t, "Count", divs[0].Field)
	assert.Equal(t, domain.SummaryCIUpper, divs[1].Field)
}

func TestFloatEquals_NaN(t *testing.T) {
	assert.True(t, floatEquals(math.NaN(), math.NaN()))
	assert.False(t, floatEquals(math.NaN(), 1))
}

func TestCompareEnsembles(t *testing.T) {
	a := &domain.Ensemble{Trials: [][]float64{{1, 1.1}, {1, 0.9}}}
	b := &domain.Ensemble{Trials: [][]float64{{1, 1.1}, {1, 0.95}}}

	delta, div := CompareEnsembles(a, b)
	assert.Nil(t, div)
	assert.InDelta(t, 0.05, delta, 1e-12)

	_, div = CompareEnsembles(a, &domain.Ensemble{Trials: [][]float64{{1, 1.1}}})
	require.NotNil(t, div)
	assert.Equal(t, "EnsembleShape", div.Field)
}

type fixture struct {
	prices       *memory.PriceStore
	runs         *memory.SimulationRunStore
	trajectories *memory.TrajectoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		prices:       memory.NewPriceStore(),
		runs:         memory.NewSimulationRunStore(),
		trajectories: memory.NewTrajectoryStore(),
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var points []*domain.PricePoint
	for asset, drift := range map[string]float64{"AAA": 0.004, "BBB": -0.002} {
		price := 100.0
		for i := 0; i < 20; i++ {
			if i > 0 {
				price *= 1 + drift + 0.01*float64(i%3-1)
			}
			points = append(points, &domain.PricePoint{Asset: asset, Date: start.AddDate(0, 0, i), Close: price})
		}
	}
	require.NoError(t, f.prices.InsertBulk(context.Background(), points))
	return f
}

func (f *fixture) simulate(t *testing.T, seed uint64) *domain.SimulationRun {
	t.Helper()
	runner := simulation.NewRunner(simulation.RunnerOptions{
		PriceStore:      f.prices,
		RunStore:        f.runs,
		TrajectoryStore: f.trajectories,
	})
	res, err := runner.Run(context.Background(), simulation.RunRequest{
		Assets:  []string{"AAA", "BBB"},
		Weights: []float64{0.6, 0.4},
		Config:  domain.SimulationConfig{Trials: 25, HorizonDays: 15, Seed: &seed},
	})
	require.NoError(t, err)
	return res.Run
}

func (f *fixture) verifier(workers int) *ReplayVerifier {
	return NewReplayVerifier(ReplayVerifierOptions{
		RunStore:        f.runs,
		PriceStore:      f.prices,
		TrajectoryStore: f.trajectories,
		Workers:         workers,
	})
}

func TestReplayVerifier_VerifyRun_Match(t *testing.T) {
	f := newFixture(t)
	run := f.simulate(t, 42)

	// worker count does not change the replayed paths
	result, err := f.verifier(4).VerifyRun(context.Background(), run.RunID)
	require.NoError(t, err)

	assert.True(t, result.Match, "divergences: %+v", result.Divergences)
	assert.True(t, result.PathsCompared)
	assert.Equal(t, 0.0, result.MaxPathDelta)
	assert.Equal(t, run.Summary.Mean, result.ReplayedMean)
}

func TestReplayVerifier_VerifyRun_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.verifier(1).VerifyRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestReplayVerifier_VerifyRun_TamperedSummary(t *testing.T) {
	f := newFixture(t)
	run := f.simulate(t, 7)

	tampered := *run
	tampered.RunID = "tampered"
	tampered.Summary.Mean += 0.5
	require.NoError(t, f.runs.Insert(context.Background(), &tampered))

	result, err := f.verifier(1).VerifyRun(context.Background(), "tampered")
	require.NoError(t, err)

	assert.False(t, result.Match)
	assert.False(t, result.PathsCompared)
	require.Len(t, result.Divergences, 1)
	assert.Equal(t, domain.SummaryMean, result.Divergences[0].Field)
}

func TestReplayVerifier_VerifyAll(t *testing.T) {
	f := newFixture(t)
	f.simulate(t, 1)
	f.simulate(t, 2)

	broken := &domain.SimulationRun{
		RunID:       "broken",
		Assets:      []string{"ZZZ"},
		Weights:     []float64{1},
		Trials:      5,
		HorizonDays: 5,
		HistoryFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		HistoryTo:   time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.runs.Insert(context.Background(), broken))

	report, err := f.verifier(1).VerifyAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalRuns)
	assert.Equal(t, 2, report.MatchedRuns)
	assert.Equal(t, 1, report.DivergentRuns)
	for _, r := range report.Results {
		if r.RunID == "broken" {
			require.Len(t, r.Divergences, 1)
			assert.Equal(t, "Error", r.Divergences[0].Field)
		}
	}
}
