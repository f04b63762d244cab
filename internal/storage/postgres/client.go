package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmandi/supply-api/internal/domain/client"
)

const (
	listClientsSQL = `SELECT id, name, contact, phone, email, address
	FROM clients ORDER BY name`

	getClientSQL = `SELECT id, name, contact, phone, email, address
	FROM clients WHERE id = $1`

	upsertClientSQL = `INSERT INTO clients (id, name, contact, phone, email, address)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		contact = EXCLUDED.contact,
		phone = EXCLUDED.phone,
		email = EXCLUDED.email,
		address = EXCLUDED.address`
)

var _ client.Repository = (*ClientRepository)(nil)

// ClientRepository implements client.Repository backed by PostgreSQL.
type ClientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository returns a ClientRepository that uses the given pool.
func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

// List returns all clients ordered by name.
func (r *ClientRepository) List(ctx context.Context) ([]client.Client, error) {
	rows, err := r.pool.Query(ctx, listClientsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list clients")
	}
	defer rows.Close()

	var out []client.Client
	for rows.Next() {
		var c client.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Contact, &c.Phone, &c.Email, &c.Address); err != nil {
			return nil, errors.Wrap(err, "scan client")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Upsert inserts or refreshes a directory entry. Used by the seed command.
func (r *ClientRepository) Upsert(ctx context.Context, c client.Client) error {
	_, err := r.pool.Exec(ctx, upsertClientSQL, c.ID, c.Name, c.Contact, c.Phone, c.Email, c.Address)
	if err != nil {
		return errors.Wrapf(err, "upsert client %q", c.ID)
	}
	return nil
}

// GetByID looks up a single client. Returns client.ErrNotFound when no row
// matches.
func (r *ClientRepository) GetByID(ctx context.Context, id string) (*client.Client, error) {
	var c client.Client
	err := r.pool.QueryRow(ctx, getClientSQL, id).
		Scan(&c.ID, &c.Name, &c.Contact, &c.Phone, &c.Email, &c.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, client.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get client %q", id)
	}
	return &c, nil
}
