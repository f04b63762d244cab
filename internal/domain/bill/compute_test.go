package bill

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testItems() []Line {
	return []Line{
		{ProductID: "tomato", Name: "Tomato", Unit: "kg", Quantity: d("10"), PricePerUnit: d("20")},
		{ProductID: "onion", Name: "Onion", Unit: "kg", Quantity: d("5"), PricePerUnit: d("30")},
	}
}

func TestComputeTotals_NoDiscount(t *testing.T) {
	// 10*20 + 5*30 = 350; tax 5% = 17.50; grand = 367.50
	totals := ComputeTotals(testItems(), d("5"), decimal.Zero)

	assert.True(t, d("350.00").Equal(totals.Subtotal))
	assert.True(t, d("350.00").Equal(totals.DiscountedSubtotal))
	assert.True(t, d("17.50").Equal(totals.Tax))
	assert.True(t, d("367.50").Equal(totals.GrandTotal))
}

func TestComputeTotals_FlatDiscount(t *testing.T) {
	// 350 - 50 = 300; tax 5% = 15; grand = 315
	totals := ComputeTotals(testItems(), d("5"), d("50"))

	assert.True(t, d("350.00").Equal(totals.Subtotal))
	assert.True(t, d("300.00").Equal(totals.DiscountedSubtotal))
	assert.True(t, d("15.00").Equal(totals.Tax))
	assert.True(t, d("315.00").Equal(totals.GrandTotal))
}

// A discount larger than the subtotal is applied as-is; the caller sees the
// negative result instead of a silently clamped zero.
func TestComputeTotals_DiscountExceedsSubtotal(t *testing.T) {
	totals := ComputeTotals(testItems(), d("5"), d("400"))

	assert.True(t, d("-50.00").Equal(totals.DiscountedSubtotal))
	assert.True(t, d("-2.50").Equal(totals.Tax))
	assert.True(t, d("-52.50").Equal(totals.GrandTotal))
}

func TestComputeTotals_ZeroTaxRate(t *testing.T) {
	totals := ComputeTotals(testItems(), decimal.Zero, decimal.Zero)

	assert.True(t, d("0.00").Equal(totals.Tax))
	assert.True(t, d("350.00").Equal(totals.GrandTotal))
}

func TestComputeTotals_EmptyItems(t *testing.T) {
	totals := ComputeTotals(nil, d("5"), decimal.Zero)

	assert.True(t, decimal.Zero.Equal(totals.Subtotal))
	assert.True(t, decimal.Zero.Equal(totals.GrandTotal))
}

func TestComputeTotals_Rounding(t *testing.T) {
	items := []Line{
		{Quantity: d("3"), PricePerUnit: d("33.333")},
	}
	// 3*33.333 = 99.999 -> 100.00; tax 5% = 5.00; grand = 105.00
	totals := ComputeTotals(items, d("5"), decimal.Zero)

	assert.True(t, d("100.00").Equal(totals.Subtotal))
	assert.True(t, d("5.00").Equal(totals.Tax))
	assert.True(t, d("105.00").Equal(totals.GrandTotal))
}

// Same snapshot and parameters always give identical totals.
func TestComputeTotals_Deterministic(t *testing.T) {
	first := ComputeTotals(testItems(), d("12"), d("25"))
	second := ComputeTotals(testItems(), d("12"), d("25"))

	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.DiscountedSubtotal.Equal(second.DiscountedSubtotal))
	assert.True(t, first.Tax.Equal(second.Tax))
	assert.True(t, first.GrandTotal.Equal(second.GrandTotal))
}
