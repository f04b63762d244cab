package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the pricing lifecycle state of an order.
type Status string

const (
	// StatusPendingPricing marks an order whose lines still lack locked prices.
	StatusPendingPricing Status = "pending_pricing"
	// StatusPriced marks an order with every line price locked.
	StatusPriced Status = "priced"
	// StatusBilled marks an order that has exactly one bill.
	StatusBilled Status = "billed"
)

// Line is a single order line. PricePerUnit is the price locked onto this
// order; once valid it is immutable. The catalog reference price plays no
// part after a line is locked.
type Line struct {
	ProductID    string              `json:"product_id"`
	Name         string              `json:"name"`
	Unit         string              `json:"unit"`
	Quantity     decimal.Decimal     `json:"quantity"`
	PricePerUnit decimal.NullDecimal `json:"price_per_unit"`
}

// Priced reports whether this line has a locked price.
func (l Line) Priced() bool {
	return l.PricePerUnit.Valid
}

// Total returns quantity times the locked price, or zero when unpriced.
func (l Line) Total() decimal.Decimal {
	if !l.PricePerUnit.Valid {
		return decimal.Zero
	}
	return l.Quantity.Mul(l.PricePerUnit.Decimal)
}

// Order is a client's produce order. TotalAmount is a cached derivative of
// the lines: null while any line lacks a price, otherwise the sum of line
// totals rounded to 2 decimal places.
type Order struct {
	ID           string
	ClientID     string
	Status       Status
	DeliveryDate time.Time
	Instructions string
	Lines        []Line
	TotalAmount  decimal.NullDecimal
	CreatedAt    time.Time
}

// UnpricedLines returns the lines that still lack a locked price.
func (o *Order) UnpricedLines() []Line {
	var out []Line
	for _, l := range o.Lines {
		if !l.Priced() {
			out = append(out, l)
		}
	}
	return out
}

// LinesTotal sums quantity times price over all priced lines, rounded to
// 2 decimal places. This is the single definition of an order total; the
// bill engine computes its subtotal the same way.
func LinesTotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum.Round(2)
}

// Repository defines persistence operations for orders.
//
// CommitPrices performs the pending_pricing -> priced transition atomically:
// all line prices, the cached total, and the status change as one unit of
// work with the order row held exclusively, so near-simultaneous
// finalizations serialize. It returns ErrAlreadyPriced when the order left
// pending_pricing between the caller's read and the commit.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	ListPendingPricing(ctx context.Context) ([]Order, error)
	CommitPrices(ctx context.Context, orderID string, prices map[string]decimal.Decimal, total decimal.Decimal) (*Order, error)
}
