package bill

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals is the result of one bill computation pass.
type Totals struct {
	Subtotal           decimal.Decimal
	DiscountedSubtotal decimal.Decimal
	Tax                decimal.Decimal
	GrandTotal         decimal.Decimal
}

// ComputeTotals runs the billing arithmetic in its fixed order:
//
//	subtotal   = sum of quantity * price_per_unit
//	discounted = subtotal - discount
//	tax        = discounted * tax_rate / 100
//	grand      = discounted + tax
//
// The discount is a flat amount and is deliberately not clamped: a discount
// exceeding the subtotal yields a negative discounted subtotal, which the
// caller accepts as-is. All results are rounded to 2 decimal places.
func ComputeTotals(items []Line, taxRate, discount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Quantity.Mul(it.PricePerUnit))
	}
	subtotal = subtotal.Round(2)

	discounted := subtotal.Sub(discount).Round(2)
	tax := discounted.Mul(taxRate).Div(hundred).Round(2)
	grand := discounted.Add(tax).Round(2)

	return Totals{
		Subtotal:           subtotal,
		DiscountedSubtotal: discounted,
		Tax:                tax,
		GrandTotal:         grand,
	}
}
