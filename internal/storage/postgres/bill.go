package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmandi/supply-api/internal/domain/bill"
	"github.com/freshmandi/supply-api/internal/domain/order"
)

const (
	insertBillSQL = `INSERT INTO bills
	(id, order_id, client_id, bill_date, due_date, tax_rate, discount, paid,
	 payment_method, comments, amount, total_amount, items, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`

	markOrderBilledSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	selectBillSQL = `SELECT id, order_id, client_id, bill_date, due_date, tax_rate, discount, paid,
	payment_method, comments, amount, total_amount, items, created_at, updated_at
	FROM bills`

	getBillSQL        = selectBillSQL + ` WHERE id = $1`
	getBillByOrderSQL = selectBillSQL + ` WHERE order_id = $1`

	updateBillSQL = `UPDATE bills
	SET tax_rate = $2, discount = $3, paid = $4, payment_method = $5, comments = $6,
	    total_amount = $7, updated_at = now()
	WHERE id = $1`
)

// billOrderUniqueConstraint guards the one-bill-per-order invariant.
const billOrderUniqueConstraint = "bills_order_id_key"

var _ bill.Repository = (*BillRepository)(nil)

// BillRepository implements bill.Repository backed by PostgreSQL. The item
// snapshot is stored as a JSONB column alongside the bill row.
type BillRepository struct {
	pool *pgxpool.Pool
}

// NewBillRepository returns a BillRepository that uses the given pool.
func NewBillRepository(pool *pgxpool.Pool) *BillRepository {
	return &BillRepository{pool: pool}
}

// Create inserts the bill and marks its order billed in one transaction.
// A unique-violation on the order id maps to bill.ErrDuplicate, so two
// near-simultaneous requests for the same order cannot both succeed.
func (r *BillRepository) Create(ctx context.Context, b *bill.Bill) error {
	items, err := json.Marshal(b.Items)
	if err != nil {
		return errors.Wrap(err, "marshal bill items")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, insertBillSQL,
		b.ID, b.OrderID, b.ClientID, b.BillDate, b.DueDate, b.TaxRate, b.Discount, b.Paid,
		b.PaymentMethod, b.Comments, b.Amount, b.TotalAmount, items, b.CreatedAt,
	)
	if err != nil {
		if isBillOrderConflict(err) {
			return bill.ErrDuplicate
		}
		return errors.Wrapf(err, "insert bill for order %q", b.OrderID)
	}

	_, err = tx.Exec(ctx, markOrderBilledSQL, b.OrderID, string(order.StatusBilled))
	if err != nil {
		return errors.Wrapf(err, "mark order %q billed", b.OrderID)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// GetByID fetches a single bill. Returns bill.ErrNotFound when no row matches.
func (r *BillRepository) GetByID(ctx context.Context, id string) (*bill.Bill, error) {
	return r.get(ctx, getBillSQL, id)
}

// GetByOrder fetches the bill attached to an order, if any.
func (r *BillRepository) GetByOrder(ctx context.Context, orderID string) (*bill.Bill, error) {
	return r.get(ctx, getBillByOrderSQL, orderID)
}

func (r *BillRepository) get(ctx context.Context, sql string, arg any) (*bill.Bill, error) {
	b, err := scanBill(r.pool.QueryRow(ctx, sql, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bill.ErrNotFound
		}
		return nil, errors.Wrap(err, "get bill")
	}
	return b, nil
}

// List returns bills newest first, optionally narrowed by client and paid
// state.
func (r *BillRepository) List(ctx context.Context, f bill.ListFilter) ([]bill.Bill, error) {
	sql := selectBillSQL + ` WHERE ($1 = '' OR client_id = $1) AND ($2::boolean IS NULL OR paid = $2)`
	sql += ` ORDER BY created_at DESC`
	args := []any{f.ClientID, f.Paid}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list bills")
	}
	defer rows.Close()

	var out []bill.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan bill")
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// UpdateAdminFields persists the mutable fields and recomputed totals. The
// item snapshot, amount, order linkage and dates are deliberately not in the
// statement.
func (r *BillRepository) UpdateAdminFields(ctx context.Context, b *bill.Bill) error {
	tag, err := r.pool.Exec(ctx, updateBillSQL,
		b.ID, b.TaxRate, b.Discount, b.Paid, b.PaymentMethod, b.Comments, b.TotalAmount,
	)
	if err != nil {
		return errors.Wrapf(err, "update bill %q", b.ID)
	}
	if tag.RowsAffected() == 0 {
		return bill.ErrNotFound
	}
	return nil
}

func scanBill(row pgx.Row) (*bill.Bill, error) {
	var b bill.Bill
	var items []byte
	err := row.Scan(
		&b.ID, &b.OrderID, &b.ClientID, &b.BillDate, &b.DueDate, &b.TaxRate, &b.Discount, &b.Paid,
		&b.PaymentMethod, &b.Comments, &b.Amount, &b.TotalAmount, &items, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &b.Items); err != nil {
			return nil, errors.Wrap(err, "unmarshal bill items")
		}
	}
	return &b, nil
}

func isBillOrderConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		pgErr.ConstraintName == billOrderUniqueConstraint
}
