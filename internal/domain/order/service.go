package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshmandi/supply-api/internal/domain/client"
	"github.com/freshmandi/supply-api/internal/domain/product"
)

// Sentinel errors for order intake and price finalization.
var (
	ErrEmptyItems     = errors.New("items required")
	ErrNotFound       = errors.New("order not found")
	ErrClientNotFound = errors.New("client not found")
	// ErrAlreadyPriced rejects a finalization attempt on an order whose
	// prices are already locked. Locked prices are never overwritten.
	ErrAlreadyPriced = errors.New("order prices already finalized")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InvalidPriceError indicates a supplied price per unit is not positive.
type InvalidPriceError struct {
	ProductID string
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("price per unit must be greater than 0 for product %s", e.ProductID)
}

// IncompleteFinalizationError aborts a finalization request that does not
// cover every unpriced line with a strictly positive price. It names the
// offending lines so the operator can correct input without guessing.
type IncompleteFinalizationError struct {
	ProductIDs []string
}

func (e *IncompleteFinalizationError) Error() string {
	return fmt.Sprintf("missing or non-positive price for lines: %s", strings.Join(e.ProductIDs, ", "))
}

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	ClientID     string
	DeliveryDate time.Time
	Instructions string
	Items        []ItemRequest
}

// ItemRequest is a single requested line. PricePerUnit is set only on the
// manual/backdated entry path where the operator already knows the price;
// regular intake leaves it empty and the order goes to pending_pricing.
type ItemRequest struct {
	ProductID    string
	Quantity     decimal.Decimal
	PricePerUnit decimal.NullDecimal
}

// LinePrice carries one finalized price for an order line.
type LinePrice struct {
	ProductID    string
	PricePerUnit decimal.Decimal
}

// Service owns order intake and the pending_pricing -> priced transition.
type Service struct {
	clients  client.Repository
	products product.Repository
	orders   Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(clients client.Repository, products product.Repository, orders Repository) *Service {
	return &Service{
		clients:  clients,
		products: products,
		orders:   orders,
	}
}

// CreateOrder validates the request, resolves products from the catalog, and
// persists exactly one order. Market-day pricing policy: a line locks a price
// at creation only when the request supplies one; otherwise the line is
// created unpriced and the order enters pending_pricing. No bill is created
// here under any circumstances.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		if item.PricePerUnit.Valid && item.PricePerUnit.Decimal.LessThanOrEqual(decimal.Zero) {
			return nil, &InvalidPriceError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	if _, err := s.clients.GetByID(ctx, req.ClientID); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, errors.Wrap(err, "get client")
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	lines := make([]Line, len(req.Items))
	allPriced := true
	for i, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		lines[i] = Line{
			ProductID:    p.ID,
			Name:         p.Name,
			Unit:         p.Unit,
			Quantity:     item.Quantity,
			PricePerUnit: item.PricePerUnit,
		}
		if !item.PricePerUnit.Valid {
			allPriced = false
		}
	}

	o := &Order{
		ID:           uuid.New().String(),
		ClientID:     req.ClientID,
		Status:       StatusPendingPricing,
		DeliveryDate: req.DeliveryDate,
		Instructions: req.Instructions,
		Lines:        lines,
		CreatedAt:    time.Now(),
	}
	if allPriced {
		o.Status = StatusPriced
		o.TotalAmount = decimal.NewNullDecimal(LinesTotal(lines))
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// FinalizePrices locks a price onto every unpriced line of a pending_pricing
// order in one all-or-nothing transition. A missing, zero, or negative price
// for any line aborts the whole request with no line changed; a repeat call
// on an already priced order fails with ErrAlreadyPriced.
func (s *Service) FinalizePrices(ctx context.Context, orderID string, prices []LinePrice) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPendingPricing {
		return nil, ErrAlreadyPriced
	}

	supplied := make(map[string]decimal.Decimal, len(prices))
	for _, p := range prices {
		supplied[p.ProductID] = p.PricePerUnit
	}

	// Every unpriced line must receive a strictly positive price.
	var offending []string
	commit := make(map[string]decimal.Decimal, len(o.Lines))
	lines := make([]Line, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = l
		if l.Priced() {
			continue
		}
		price, ok := supplied[l.ProductID]
		if !ok || price.LessThanOrEqual(decimal.Zero) {
			offending = append(offending, l.ProductID)
			continue
		}
		commit[l.ProductID] = price
		lines[i].PricePerUnit = decimal.NewNullDecimal(price)
	}
	if len(offending) > 0 {
		return nil, &IncompleteFinalizationError{ProductIDs: offending}
	}

	total := LinesTotal(lines)

	updated, err := s.orders.CommitPrices(ctx, orderID, commit, total)
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Get returns a single order by id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// List returns all orders, newest first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// ListPendingPricing returns orders still awaiting price finalization.
func (s *Service) ListPendingPricing(ctx context.Context) ([]Order, error) {
	return s.orders.ListPendingPricing(ctx)
}
