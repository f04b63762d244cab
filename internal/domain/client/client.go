package client

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested client does not exist.
var ErrNotFound = errors.New("client not found")

// Client is a hotel or restaurant supplied by the business. Identity and
// contact data are owned by the directory; the order workflow only reads them.
type Client struct {
	ID      string
	Name    string
	Contact string
	Phone   string
	Email   string
	Address string
}

// Repository defines read operations for the client directory.
type Repository interface {
	List(ctx context.Context) ([]Client, error)
	GetByID(ctx context.Context, id string) (*Client, error)
}
