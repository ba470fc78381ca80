package simulation

import (
	"github.com/shopspring/decimal"

	"portfolio-montecarlo/internal/domain"
)

// ValueRange is the projected value band of an investment.
type ValueRange struct {
	Initial decimal.Decimal
	Lower   decimal.Decimal
	Upper   decimal.Decimal
}

// ProjectValue scales the confidence interval of cumulative returns by an
// initial investment. Bounds are rounded to cents.
func ProjectValue(initial decimal.Decimal, ci domain.ConfidenceInterval) ValueRange {
	return ValueRange{
		Initial: initial,
		Lower:   initial.Mul(decimal.NewFromFloat(ci.Lower)).Round(2),
		Upper:   initial.Mul(decimal.NewFromFloat(ci.Upper)).Round(2),
	}
}
