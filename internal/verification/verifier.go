// Package verification re-simulates stored runs and checks that the stored
// summary and trajectories are reproduced from the same inputs and seed.
package verification

import (
	"math"

	"portfolio-montecarlo/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-9

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID         string            // verified run ID
	Match         bool              // true if all fields match
	Divergences   []FieldDivergence // list of divergent fields
	StoredMean    float64           // mean final return of the stored run
	ReplayedMean  float64           // mean final return of the replay
	MaxPathDelta  float64           // largest trajectory difference, 0 if trajectories were not compared
	PathsCompared bool
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int                  // total runs verified
	MatchedRuns   int                  // runs that matched
	DivergentRuns int                  // runs with divergences or errors
	Results       []VerificationResult // individual results
}

// CompareSummaries compares two run summaries field by field.
// Uses FloatTolerance for float64 comparisons.
func CompareSummaries(stored, replayed domain.Summary) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.Count != replayed.Count {
		divergences = append(divergences, FieldDivergence{
			Field:    "Count",
			Expected: stored.Count,
			Actual:   replayed.Count,
		})
	}

	storedEntries := stored.Entries()
	replayedEntries := replayed.Entries()
	for i, e := range storedEntries {
		if e.Name == domain.SummaryCount {
			continue
		}
		if !floatEquals(e.Value, replayedEntries[i].Value) {
			divergences = append(divergences, FieldDivergence{
				Field:    e.Name,
				Expected: e.Value,
				Actual:   replayedEntries[i].Value,
			})
		}
	}

	return divergences
}

// CompareEnsembles returns the largest absolute difference between two
// ensembles, or a divergence if their shapes differ.
func CompareEnsembles(stored, replayed *domain.Ensemble) (float64, *FieldDivergence) {
	if stored.TrialCount() != replayed.TrialCount() || stored.Steps() != replayed.Steps() {
		return 0, &FieldDivergence{
			Field:    "EnsembleShape",
			Expected: [2]int{stored.TrialCount(), stored.Steps()},
			Actual:   [2]int{replayed.TrialCount(), replayed.Steps()},
		}
	}

	maxDelta := 0.0
	for i, tr := range stored.Trials {
		for t, v := range tr {
			maxDelta = math.Max(maxDelta, math.Abs(v-replayed.Trials[i][t]))
		}
	}
	return maxDelta, nil
}

// floatEquals compares two float64 values within FloatTolerance.
// NaN equals NaN.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= FloatTolerance
}
