package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/freshmandi/supply-api/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders
	(id, client_id, status, delivery_date, instructions, total_amount, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

	insertOrderLineSQL = `INSERT INTO order_lines
	(order_id, position, product_id, product_name, unit, quantity, price_per_unit)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getOrderSQL = `SELECT id, client_id, status, delivery_date, instructions, total_amount, created_at
	FROM orders WHERE id = $1`

	lockOrderSQL = `SELECT status FROM orders WHERE id = $1 FOR UPDATE`

	listOrdersSQL = `SELECT id, client_id, status, delivery_date, instructions, total_amount, created_at
	FROM orders ORDER BY created_at DESC`

	listOrdersByStatusSQL = `SELECT id, client_id, status, delivery_date, instructions, total_amount, created_at
	FROM orders WHERE status = $1 ORDER BY created_at DESC`

	getOrderLinesSQL = `SELECT order_id, product_id, product_name, unit, quantity, price_per_unit
	FROM order_lines WHERE order_id = ANY($1) ORDER BY order_id, position`

	setLinePriceSQL = `UPDATE order_lines
	SET price_per_unit = $3
	WHERE order_id = $1 AND product_id = $2 AND price_per_unit IS NULL`

	setOrderPricedSQL = `UPDATE orders
	SET status = $2, total_amount = $3, updated_at = now()
	WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and its lines in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.ClientID, string(o.Status), o.DeliveryDate, o.Instructions, o.TotalAmount, o.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}

	for i, l := range o.Lines {
		_, err = tx.Exec(ctx, insertOrderLineSQL,
			o.ID, i, l.ProductID, l.Name, l.Unit, l.Quantity, l.PricePerUnit,
		)
		if err != nil {
			return errors.Wrapf(err, "insert order line %d", i)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// GetByID fetches a single order with its lines. Returns order.ErrNotFound
// when no row matches.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	var status string
	err := r.pool.QueryRow(ctx, getOrderSQL, id).
		Scan(&o.ID, &o.ClientID, &status, &o.DeliveryDate, &o.Instructions, &o.TotalAmount, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o.Status = order.Status(status)

	lines, err := r.fetchLines(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[id]

	return &o, nil
}

// List returns all orders with their lines, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	return r.list(ctx, listOrdersSQL)
}

// ListPendingPricing returns orders still awaiting price finalization.
func (r *OrderRepository) ListPendingPricing(ctx context.Context) ([]order.Order, error) {
	return r.list(ctx, listOrdersByStatusSQL, string(order.StatusPendingPricing))
}

func (r *OrderRepository) list(ctx context.Context, sql string, args ...any) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var out []order.Order
	var ids []string
	for rows.Next() {
		var o order.Order
		var status string
		if err := rows.Scan(&o.ID, &o.ClientID, &status, &o.DeliveryDate, &o.Instructions, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		o.Status = order.Status(status)
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	lines, err := r.fetchLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = lines[out[i].ID]
	}
	return out, nil
}

// fetchLines loads the lines for the given order ids in one query, keyed by
// order id, preserving line order.
func (r *OrderRepository) fetchLines(ctx context.Context, orderIDs []string) (map[string][]order.Line, error) {
	rows, err := r.pool.Query(ctx, getOrderLinesSQL, orderIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get order lines")
	}
	defer rows.Close()

	out := make(map[string][]order.Line, len(orderIDs))
	for rows.Next() {
		var orderID string
		var l order.Line
		if err := rows.Scan(&orderID, &l.ProductID, &l.Name, &l.Unit, &l.Quantity, &l.PricePerUnit); err != nil {
			return nil, errors.Wrap(err, "scan order line")
		}
		out[orderID] = append(out[orderID], l)
	}
	return out, rows.Err()
}

// CommitPrices locks the order row, re-checks that it is still awaiting
// pricing, and applies every line price plus the cached total and the priced
// status in one transaction. Line updates only touch rows whose price is
// still null, so locked prices can never be overwritten even by a racing
// request that slipped past the service-level check.
func (r *OrderRepository) CommitPrices(ctx context.Context, orderID string, prices map[string]decimal.Decimal, total decimal.Decimal) (*order.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var status string
	if err := tx.QueryRow(ctx, lockOrderSQL, orderID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "lock order %q", orderID)
	}
	if order.Status(status) != order.StatusPendingPricing {
		return nil, order.ErrAlreadyPriced
	}

	for productID, price := range prices {
		if _, err := tx.Exec(ctx, setLinePriceSQL, orderID, productID, price); err != nil {
			return nil, errors.Wrapf(err, "set price for line %q", productID)
		}
	}

	_, err = tx.Exec(ctx, setOrderPricedSQL, orderID, string(order.StatusPriced), total)
	if err != nil {
		return nil, errors.Wrapf(err, "mark order %q priced", orderID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}

	return r.GetByID(ctx, orderID)
}
