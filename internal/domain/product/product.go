package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item the business supplies. ReferencePrice is the
// current catalog rate; it changes with the market and is a fallback only,
// never a substitute for a price locked onto an order line.
type Product struct {
	ID             string
	Name           string
	Unit           string
	Category       string
	ReferencePrice decimal.Decimal
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
