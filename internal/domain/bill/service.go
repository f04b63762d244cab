package bill

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshmandi/supply-api/internal/domain/order"
)

// Billing defaults. Due date falls 10 days after the bill date unless the
// operator overrides it; tax defaults to 5 percent, discount to zero.
var (
	DefaultTaxRate = decimal.NewFromInt(5)
	DefaultDueDays = 10
)

// legacyLineName labels the synthetic line used when billing an order that
// carries a cached total but no line items (bills predating item snapshots).
const legacyLineName = "Order total"

// CreateRequest holds the input for creating a bill. Optional fields default
// per the package-level defaults when nil.
type CreateRequest struct {
	OrderID       string
	BillDate      time.Time
	DueDate       *time.Time
	TaxRate       *decimal.Decimal
	Discount      *decimal.Decimal
	PaymentMethod string
	Paid          bool
	Comments      string
}

// UpdateRequest is a partial update of a bill's administrative fields.
// Nil fields are left unchanged. The item snapshot is not updatable.
type UpdateRequest struct {
	Paid          *bool
	PaymentMethod *string
	Comments      *string
	TaxRate       *decimal.Decimal
	Discount      *decimal.Decimal
}

// Service owns bill creation and administrative updates.
type Service struct {
	orders order.Repository
	bills  Repository
}

// NewService creates a bill Service with the required domain dependencies.
func NewService(orders order.Repository, bills Repository) *Service {
	return &Service{orders: orders, bills: bills}
}

// CreateBill snapshots a priced order's lines and produces its bill. The
// snapshot insulates the bill from later catalog or order changes. At most
// one bill can exist per order: a second call fails with ErrDuplicate and
// leaves the first bill untouched.
//
// Orders without any lines (records predating line storage) are billed in a
// degraded mode: the cached order total, or zero when absent, becomes a
// single generic line, and then runs through the same discount and tax steps
// as any other bill.
func (s *Service) CreateBill(ctx context.Context, req CreateRequest) (*Bill, error) {
	o, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	switch {
	case o.Status == order.StatusBilled:
		return nil, ErrDuplicate
	case o.Status == order.StatusPendingPricing && len(o.Lines) > 0:
		return nil, ErrOrderNotPriced
	}

	items := snapshotLines(o)

	taxRate := DefaultTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	discount := decimal.Zero
	if req.Discount != nil {
		discount = *req.Discount
	}
	dueDate := req.BillDate.AddDate(0, 0, DefaultDueDays)
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}

	totals := ComputeTotals(items, taxRate, discount)

	now := time.Now()
	b := &Bill{
		ID:            uuid.New().String(),
		OrderID:       o.ID,
		ClientID:      o.ClientID,
		BillDate:      req.BillDate,
		DueDate:       dueDate,
		TaxRate:       taxRate,
		Discount:      discount,
		Paid:          req.Paid,
		PaymentMethod: req.PaymentMethod,
		Comments:      req.Comments,
		Amount:        totals.Subtotal,
		TotalAmount:   totals.GrandTotal,
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.bills.Create(ctx, b); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, errors.Wrap(err, "create bill")
	}

	return b, nil
}

// snapshotLines freezes the order's priced lines for the bill. An order with
// no lines falls back to its cached total as one generic line.
func snapshotLines(o *order.Order) []Line {
	if len(o.Lines) == 0 {
		total := decimal.Zero
		if o.TotalAmount.Valid {
			total = o.TotalAmount.Decimal
		}
		return []Line{{
			Name:         legacyLineName,
			Unit:         "order",
			Quantity:     decimal.NewFromInt(1),
			PricePerUnit: total,
		}}
	}

	items := make([]Line, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = Line{
			ProductID:    l.ProductID,
			Name:         l.Name,
			Unit:         l.Unit,
			Quantity:     l.Quantity,
			PricePerUnit: l.PricePerUnit.Decimal,
		}
	}
	return items
}

// UpdateBill changes a bill's administrative fields and refreshes the totals
// from the stored item snapshot. The snapshot itself is never touched.
func (s *Service) UpdateBill(ctx context.Context, billID string, req UpdateRequest) (*Bill, error) {
	b, err := s.bills.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}

	if req.Paid != nil {
		b.Paid = *req.Paid
	}
	if req.PaymentMethod != nil {
		b.PaymentMethod = *req.PaymentMethod
	}
	if req.Comments != nil {
		b.Comments = *req.Comments
	}
	if req.TaxRate != nil {
		b.TaxRate = *req.TaxRate
	}
	if req.Discount != nil {
		b.Discount = *req.Discount
	}

	totals := ComputeTotals(b.Items, b.TaxRate, b.Discount)
	b.Amount = totals.Subtotal
	b.TotalAmount = totals.GrandTotal
	b.UpdatedAt = time.Now()

	if err := s.bills.UpdateAdminFields(ctx, b); err != nil {
		return nil, errors.Wrap(err, "update bill")
	}

	return b, nil
}

// GetByOrder returns the bill for an order, when one exists.
func (s *Service) GetByOrder(ctx context.Context, orderID string) (*Bill, error) {
	return s.bills.GetByOrder(ctx, orderID)
}

// Get returns a single bill by id.
func (s *Service) Get(ctx context.Context, id string) (*Bill, error) {
	return s.bills.GetByID(ctx, id)
}

// List returns bills matching the filter, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Bill, error) {
	return s.bills.List(ctx, f)
}
