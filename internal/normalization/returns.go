package normalization

import (
	"fmt"
	"math"

	"portfolio-montecarlo/internal/domain"
)

// DailyReturns computes the percentage change between consecutive closes.
//
// Formula:
//   - return[0] = NaN (no prior close)
//   - return[t] = close[t] / close[t-1] - 1
func DailyReturns(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = closes[i]/closes[i-1] - 1
	}
	return out
}

// WithDailyReturns returns a copy of the table where every asset carries a
// daily_return column. Existing daily_return columns are kept as-is; missing
// ones are derived from the close column. Columns stay grouped per asset.
// The input table is not modified.
func WithDailyReturns(t *domain.PriceTable) (*domain.PriceTable, error) {
	out := domain.NewPriceTable(t.Dates())
	for _, asset := range t.Assets() {
		fields := t.Fields(asset)
		hasReturn := false
		for _, f := range fields {
			col, _ := t.Column(asset, f)
			if err := out.SetColumn(asset, f, col); err != nil {
				return nil, err
			}
			if f == domain.FieldDailyReturn {
				hasReturn = true
			}
		}
		if hasReturn {
			continue
		}

		closes, ok := t.Column(asset, domain.FieldClose)
		if !ok {
			return nil, fmt.Errorf("%w: asset %s has no %s column", domain.ErrMalformedTable, asset, domain.FieldClose)
		}
		if err := out.SetColumn(asset, domain.FieldDailyReturn, DailyReturns(closes)); err != nil {
			return nil, err
		}
	}
	return out, nil
}
