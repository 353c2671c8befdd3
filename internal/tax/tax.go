// Package tax computes the sales surcharge applied to carts and sales.
package tax

import "github.com/shopspring/decimal"

// DefaultRate is the percentage applied when no rate is configured.
var DefaultRate = decimal.NewFromInt(16)

var hundred = decimal.NewFromInt(100)

// Amount returns subtotal * rate / 100. Prices carry two decimals and the rate
// at most three, so the quotient is exact and no rounding is applied.
func Amount(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Div(hundred)
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Compute derives tax and total from a subtotal.
func Compute(subtotal, rate decimal.Decimal) Totals {
	t := Amount(subtotal, rate)
	return Totals{
		Subtotal: subtotal,
		Tax:      t,
		Total:    subtotal.Add(t),
	}
}

// Sum adds line subtotals and computes the totals over them.
func Sum(rate decimal.Decimal, lineSubtotals ...decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, s := range lineSubtotals {
		subtotal = subtotal.Add(s)
	}
	return Compute(subtotal, rate)
}
