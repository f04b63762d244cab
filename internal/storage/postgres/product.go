package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/freshmandi/supply-api/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, unit, category, reference_price
	FROM products ORDER BY name`

	getProductSQL = `SELECT id, name, unit, category, reference_price
	FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, unit, category, reference_price
	FROM products WHERE id = ANY($1)`

	upsertProductPriceSQL = `UPDATE products
	SET reference_price = $2, updated_at = now()
	WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (id, name, unit, category, reference_price)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		unit = EXCLUDED.unit,
		category = EXCLUDED.category,
		reference_price = EXCLUDED.reference_price,
		updated_at = now()`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the full catalog ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	return scanProducts(rows)
}

// GetByID looks up a single product. Returns product.ErrNotFound when no row
// matches.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	var p product.Product
	err := r.pool.QueryRow(ctx, getProductSQL, id).
		Scan(&p.ID, &p.Name, &p.Unit, &p.Category, &p.ReferencePrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	return &p, nil
}

// GetByIDs fetches all products matching the given ids in one query.
// Missing ids are simply absent from the result; the caller decides whether
// that is an error.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	defer rows.Close()

	return scanProducts(rows)
}

// UpdateReferencePrice sets a product's catalog price. Used by the rates
// ingest pipeline; locked order-line prices are unaffected by design.
func (r *ProductRepository) UpdateReferencePrice(ctx context.Context, id string, price decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, upsertProductPriceSQL, id, price)
	if err != nil {
		return errors.Wrapf(err, "update reference price for %q", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Upsert inserts or refreshes a catalog entry. Used by the seed command.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Unit, p.Category, p.ReferencePrice)
	if err != nil {
		return errors.Wrapf(err, "upsert product %q", p.ID)
	}
	return nil
}

func scanProducts(rows pgx.Rows) ([]product.Product, error) {
	var out []product.Product
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Unit, &p.Category, &p.ReferencePrice); err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
