package bill

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested bill does not exist.
	ErrNotFound = errors.New("bill not found")
	// ErrDuplicate rejects a second bill for an order that already has one.
	// The store enforces this with a unique constraint on the order id, so
	// the invariant holds even under near-simultaneous requests.
	ErrDuplicate = errors.New("bill already exists for order")
	// ErrOrderNotPriced rejects billing an order whose lines still lack
	// locked prices.
	ErrOrderNotPriced = errors.New("order is not priced")
)

// Line is one entry of a bill's item snapshot: the order line data frozen at
// billing time. Catalog price changes after this point cannot alter the bill.
type Line struct {
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// Bill is an invoice record for exactly one order. After creation only the
// administrative fields (Paid, PaymentMethod, Comments, TaxRate, Discount)
// may change; Items and the order linkage never do. Amount is the snapshot
// subtotal, TotalAmount the grand total after discount and tax.
type Bill struct {
	ID            string
	OrderID       string
	ClientID      string
	BillDate      time.Time
	DueDate       time.Time
	TaxRate       decimal.Decimal
	Discount      decimal.Decimal
	Paid          bool
	PaymentMethod string
	Comments      string
	Amount        decimal.Decimal
	TotalAmount   decimal.Decimal
	Items         []Line
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	ClientID string
	Paid     *bool
}

// Repository defines persistence operations for bills.
//
// Create must return ErrDuplicate when a bill already exists for the order,
// and must mark the order billed in the same unit of work. UpdateAdminFields
// persists the administrative fields and recomputed totals only; it never
// rewrites the item snapshot.
type Repository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id string) (*Bill, error)
	GetByOrder(ctx context.Context, orderID string) (*Bill, error)
	List(ctx context.Context, f ListFilter) ([]Bill, error)
	UpdateAdminFields(ctx context.Context, b *Bill) error
}
