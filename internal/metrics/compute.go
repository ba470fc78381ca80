package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"portfolio-montecarlo/internal/domain"
)

// DefaultHistogramBins matches the bin count of the distribution chart.
const DefaultHistogramBins = 10

// Summarize computes descriptive statistics and the 95% confidence interval
// of a set of final cumulative returns.
// Returns a zero Summary for empty input.
func Summarize(values []float64) *domain.Summary {
	n := len(values)
	if n == 0 {
		return &domain.Summary{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mean := Mean(values)

	return &domain.Summary{
		Count: n,
		Mean:  mean,
		Std:   Stddev(values),
		Min:   sorted[0],
		P25:   Percentile(sorted, 0.25),
		P50:   Percentile(sorted, 0.50),
		P75:   Percentile(sorted, 0.75),
		Max:   sorted[n-1],
		CI:    ConfidenceInterval(sorted),
	}
}

// ConfidenceInterval returns the (2.5%, 97.5%) percentile band.
// sorted must be pre-sorted ASC.
func ConfidenceInterval(sorted []float64) domain.ConfidenceInterval {
	return domain.ConfidenceInterval{
		Lower: Percentile(sorted, domain.CILowerQuantile),
		Upper: Percentile(sorted, domain.CIUpperQuantile),
	}
}

// Mean calculates the arithmetic mean.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Stddev calculates sample standard deviation (n-1 denominator).
// Returns 0 for fewer than 2 samples.
func Stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// MeanStddev returns mean and sample standard deviation over the non-NaN values,
// plus the number of values used.
func MeanStddev(values []float64) (mean, std float64, n int) {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return math.NaN(), math.NaN(), 0
	}
	if len(clean) == 1 {
		return clean[0], math.NaN(), 1
	}
	mean, std = stat.MeanStdDev(clean, nil)
	return mean, std, len(clean)
}

// Percentile uses linear interpolation between closest ranks.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Histogram is a binned distribution.
// Edges has len(Counts)+1 entries; bin i covers [Edges[i], Edges[i+1]).
type Histogram struct {
	Edges  []float64
	Counts []float64
}

// ComputeHistogram bins values into equal-width bins spanning [min, max].
// The maximum value falls into the last bin.
// With density set, counts are normalized so the histogram integrates to 1.
func ComputeHistogram(values []float64, bins int, density bool) Histogram {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	if len(values) == 0 {
		return Histogram{Edges: make([]float64, bins+1), Counts: make([]float64, bins)}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	edges := make([]float64, bins+1)
	floats.Span(edges, lo, hi)

	// stat.Histogram requires the top divider to be strictly above the maximum.
	dividers := make([]float64, len(edges))
	copy(dividers, edges)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)

	if density {
		width := (hi - lo) / float64(bins)
		total := float64(len(sorted))
		for i := range counts {
			counts[i] /= total * width
		}
	}

	return Histogram{Edges: edges, Counts: counts}
}

// BinCenters returns the midpoint of each bin.
func (h Histogram) BinCenters() []float64 {
	if len(h.Edges) < 2 {
		return nil
	}
	out := make([]float64, len(h.Edges)-1)
	for i := range out {
		out[i] = (h.Edges[i] + h.Edges[i+1]) / 2
	}
	return out
}
