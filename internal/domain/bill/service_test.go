package bill

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshmandi/supply-api/internal/domain/order"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	byID map[string]*order.Order
}

func (m *mockOrderRepo) Create(_ context.Context, _ *order.Order) error { return nil }

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) List(_ context.Context) ([]order.Order, error) { return nil, nil }

func (m *mockOrderRepo) ListPendingPricing(_ context.Context) ([]order.Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) CommitPrices(_ context.Context, _ string, _ map[string]decimal.Decimal, _ decimal.Decimal) (*order.Order, error) {
	return nil, nil
}

type mockBillRepo struct {
	byID      map[string]*Bill
	byOrder   map[string]*Bill
	lastBill  *Bill
	updated   *Bill
	createErr error
}

func (m *mockBillRepo) Create(_ context.Context, b *Bill) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.lastBill = b
	return nil
}

func (m *mockBillRepo) GetByID(_ context.Context, id string) (*Bill, error) {
	b, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *mockBillRepo) GetByOrder(_ context.Context, orderID string) (*Bill, error) {
	b, ok := m.byOrder[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *mockBillRepo) List(_ context.Context, _ ListFilter) ([]Bill, error) { return nil, nil }

func (m *mockBillRepo) UpdateAdminFields(_ context.Context, b *Bill) error {
	m.updated = b
	return nil
}

// --- Helpers ---

func pricedOrder(id string) *order.Order {
	return &order.Order{
		ID:       id,
		ClientID: "c1",
		Status:   order.StatusPriced,
		Lines: []order.Line{
			{ProductID: "tomato", Name: "Tomato", Unit: "kg", Quantity: d("10"), PricePerUnit: decimal.NewNullDecimal(d("20"))},
			{ProductID: "onion", Name: "Onion", Unit: "kg", Quantity: d("5"), PricePerUnit: decimal.NewNullDecimal(d("30"))},
		},
		TotalAmount: decimal.NewNullDecimal(d("350.00")),
	}
}

func billDate() time.Time {
	return time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
}

// --- CreateBill tests ---

func TestCreateBill_Defaults(t *testing.T) {
	orders := &mockOrderRepo{byID: map[string]*order.Order{"o1": pricedOrder("o1")}}
	bills := &mockBillRepo{}
	svc := NewService(orders, bills)

	b, err := svc.CreateBill(context.Background(), CreateRequest{
		OrderID:  "o1",
		BillDate: billDate(),
	})

	require.NoError(t, err)
	assert.Equal(t, "o1", b.OrderID)
	assert.Equal(t, "c1", b.ClientID)
	// Defaults: tax 5%, discount 0, due date 10 days after bill date.
	assert.True(t, d("5").Equal(b.TaxRate))
	assert.True(t, decimal.Zero.Equal(b.Discount))
	assert.Equal(t, billDate().AddDate(0, 0, 10), b.DueDate)
	assert.True(t, d("350.00").Equal(b.Amount))
	assert.True(t, d("367.50").Equal(b.TotalAmount))
	require.Len(t, b.Items, 2)
	assert.Same(t, b, bills.lastBill)
}

func TestCreateBill_Overrides(t *testing.T) {
	orders := &mockOrderRepo{byID: map[string]*order.Order{"o1": pricedOrder("o1")}}
	svc := NewService(orders, &mockBillRepo{})

	taxRate := d("12")
	discount := d("50")
	due := billDate().AddDate(0, 0, 30)

	b, err := svc.CreateBill(context.Background(), CreateRequest{
		OrderID:       "o1",
		BillDate:      billDate(),
		DueDate:       &due,
		TaxRate:       &taxRate,
		Discount:      &discount,
		PaymentMethod: "upi",
		Paid:          true,
		Comments:      "cleared on delivery",
	})

	require.NoError(t, err)
	assert.Equal(t, due, b.DueDate)
	assert.True(t, b.Paid)
	assert.Equal(t, "upi", b.PaymentMethod)
	// 350 - 50 = 300; 12% tax = 36; grand = 336
	assert.True(t, d("300.00").Equal(d("350").Sub(discount)))
	assert.True(t, d("336.00").Equal(b.TotalAmount))
}

func TestCreateBill_OrderNotFound(t *testing.T) {
	svc := NewService(&mockOrderRepo{byID: map[string]*order.Order{}}, &mockBillRepo{})

	_, err := svc.CreateBill(context.Background(), CreateRequest{OrderID: "ghost", BillDate: billDate()})
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestCreateBill_AlreadyBilled(t *testing.T) {
	o := pricedOrder("o1")
	o.Status = order.StatusBilled
	svc := NewService(&mockOrderRepo{byID: map[string]*order.Order{"o1": o}}, &mockBillRepo{})

	_, err := svc.CreateBill(context.Background(), CreateRequest{OrderID: "o1", BillDate: billDate()})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateBill_PendingPricingRejected(t *testing.T) {
	o := pricedOrder("o1")
	o.Status = order.StatusPendingPricing
	o.Lines[1].PricePerUnit = decimal.NullDecimal{}
	o.TotalAmount = decimal.NullDecimal{}
	svc := NewService(&mockOrderRepo{byID: map[string]*order.Order{"o1": o}}, &mockBillRepo{})

	_, err := svc.CreateBill(context.Background(), CreateRequest{OrderID: "o1", BillDate: billDate()})
	require.ErrorIs(t, err, ErrOrderNotPriced)
}

// Storage-level duplicate detection surfaces as ErrDuplicate even when the
// status check raced past a concurrent bill creation.
func TestCreateBill_StoreDuplicate(t *testing.T) {
	orders := &mockOrderRepo{byID: map[string]*order.Order{"o1": pricedOrder("o1")}}
	svc := NewService(orders, &mockBillRepo{createErr: ErrDuplicate})

	_, err := svc.CreateBill(context.Background(), CreateRequest{OrderID: "o1", BillDate: billDate()})
	require.ErrorIs(t, err, ErrDuplicate)
}

// Orders predating line storage carry only a cached total; they get a single
// synthetic line and run through the same discount and tax steps.
func TestCreateBill_LegacyOrderWithoutLines(t *testing.T) {
	o := &order.Order{
		ID:          "o1",
		ClientID:    "c1",
		Status:      order.StatusPriced,
		TotalAmount: decimal.NewNullDecimal(d("500")),
	}
	svc := NewService(&mockOrderRepo{byID: map[string]*order.Order{"o1": o}}, &mockBillRepo{})

	b, err := svc.CreateBill(context.Background(), CreateRequest{OrderID: "o1", BillDate: billDate()})

	require.NoError(t, err)
	require.Len(t, b.Items, 1)
	assert.Equal(t, "Order total", b.Items[0].Name)
	assert.True(t, d("1").Equal(b.Items[0].Quantity))
	assert.True(t, d("500").Equal(b.Items[0].PricePerUnit))
	assert.True(t, d("500.00").Equal(b.Amount))
	// Uniform computation: 5% default tax applies to the fallback too.
	assert.True(t, d("525.00").Equal(b.TotalAmount))
}

func TestCreateBill_LegacyOrderNoTotal(t *testing.T) {
	o := &order.Order{ID: "o1", ClientID: "c1", Status: order.StatusPendingPricing}
	svc := NewService(&mockOrderRepo{byID: map[string]*order.Order{"o1": o}}, &mockBillRepo{})

	b, err := svc.CreateBill(context.Background(), CreateRequest{OrderID: "o1", BillDate: billDate()})

	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(b.Amount))
	assert.True(t, decimal.Zero.Equal(b.TotalAmount))
}

// --- UpdateBill tests ---

func storedBill() *Bill {
	return &Bill{
		ID:          "b1",
		OrderID:     "o1",
		ClientID:    "c1",
		BillDate:    billDate(),
		DueDate:     billDate().AddDate(0, 0, 10),
		TaxRate:     d("5"),
		Discount:    decimal.Zero,
		Amount:      d("350.00"),
		TotalAmount: d("367.50"),
		Items: []Line{
			{ProductID: "tomato", Name: "Tomato", Unit: "kg", Quantity: d("10"), PricePerUnit: d("20")},
			{ProductID: "onion", Name: "Onion", Unit: "kg", Quantity: d("5"), PricePerUnit: d("30")},
		},
	}
}

func TestUpdateBill_RecomputesFromSnapshot(t *testing.T) {
	bills := &mockBillRepo{byID: map[string]*Bill{"b1": storedBill()}}
	svc := NewService(&mockOrderRepo{}, bills)

	discount := d("50")
	b, err := svc.UpdateBill(context.Background(), "b1", UpdateRequest{Discount: &discount})

	require.NoError(t, err)
	// 350 - 50 = 300; 5% tax = 15; grand = 315
	assert.True(t, d("350.00").Equal(b.Amount))
	assert.True(t, d("315.00").Equal(b.TotalAmount))
	assert.NotNil(t, bills.updated)
}

// The item snapshot survives every update untouched; only parameters change.
func TestUpdateBill_SnapshotImmutable(t *testing.T) {
	stored := storedBill()
	bills := &mockBillRepo{byID: map[string]*Bill{"b1": stored}}
	svc := NewService(&mockOrderRepo{}, bills)

	taxRate := d("18")
	b, err := svc.UpdateBill(context.Background(), "b1", UpdateRequest{TaxRate: &taxRate})

	require.NoError(t, err)
	require.Len(t, b.Items, 2)
	assert.True(t, d("20").Equal(b.Items[0].PricePerUnit))
	assert.True(t, d("30").Equal(b.Items[1].PricePerUnit))
	// 350 * 18% = 63; grand = 413
	assert.True(t, d("413.00").Equal(b.TotalAmount))
}

func TestUpdateBill_PartialFields(t *testing.T) {
	bills := &mockBillRepo{byID: map[string]*Bill{"b1": storedBill()}}
	svc := NewService(&mockOrderRepo{}, bills)

	paid := true
	method := "bank transfer"
	b, err := svc.UpdateBill(context.Background(), "b1", UpdateRequest{
		Paid:          &paid,
		PaymentMethod: &method,
	})

	require.NoError(t, err)
	assert.True(t, b.Paid)
	assert.Equal(t, "bank transfer", b.PaymentMethod)
	// Untouched parameters keep their values and the totals stand.
	assert.True(t, d("5").Equal(b.TaxRate))
	assert.True(t, d("367.50").Equal(b.TotalAmount))
}

func TestUpdateBill_NotFound(t *testing.T) {
	svc := NewService(&mockOrderRepo{}, &mockBillRepo{byID: map[string]*Bill{}})

	_, err := svc.UpdateBill(context.Background(), "ghost", UpdateRequest{})
	require.ErrorIs(t, err, ErrNotFound)
}
