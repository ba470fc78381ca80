package simulation

import (
	"fmt"
	"math"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/metrics"
)

// EstimateParameters fits a Normal(mean, stddev) daily return model per asset.
// The table must carry close and daily_return columns for every asset.
// NaN returns (the first derived value) are skipped.
func EstimateParameters(table *domain.PriceTable) ([]domain.ReturnParameters, error) {
	assets := table.Assets()
	params := make([]domain.ReturnParameters, len(assets))

	for i, a := range assets {
		last, ok := table.LastClose(a)
		if !ok {
			return nil, fmt.Errorf("%w: asset %s has no %s column", ErrInvalidInput, a, domain.FieldClose)
		}
		returns, ok := table.Column(a, domain.FieldDailyReturn)
		if !ok {
			return nil, fmt.Errorf("%w: asset %s has no %s column", ErrInvalidInput, a, domain.FieldDailyReturn)
		}

		mean, std, n := metrics.MeanStddev(returns)
		if n < minReturnSamples || math.IsNaN(std) || math.IsInf(mean, 0) || math.IsInf(std, 0) {
			return nil, fmt.Errorf("%w: cannot estimate return distribution for %s from %d sample(s)",
				ErrInsufficientHistory, a, n)
		}

		params[i] = domain.ReturnParameters{
			Asset:     a,
			LastClose: last,
			Mean:      mean,
			StdDev:    std,
			Samples:   n,
		}
	}

	return params, nil
}
