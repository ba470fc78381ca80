package reporting

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney renders amount in the currency's display format, e.g. $1,234.56.
// Unknown currencies fall back to a plain two-decimal amount with the code.
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}

	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}
