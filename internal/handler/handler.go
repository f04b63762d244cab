package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/metric"

	"github.com/freshmandi/supply-api/internal/domain/auth"
	"github.com/freshmandi/supply-api/internal/domain/bill"
	"github.com/freshmandi/supply-api/internal/domain/client"
	"github.com/freshmandi/supply-api/internal/domain/order"
	"github.com/freshmandi/supply-api/internal/domain/product"
)

// OrderService defines the order operations the handlers need.
// Satisfied by *order.Service; narrow interface for testability.
type OrderService interface {
	CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error)
	FinalizePrices(ctx context.Context, orderID string, prices []order.LinePrice) (*order.Order, error)
	Get(ctx context.Context, id string) (*order.Order, error)
	List(ctx context.Context) ([]order.Order, error)
	ListPendingPricing(ctx context.Context) ([]order.Order, error)
}

// BillService defines the bill operations the handlers need.
// Satisfied by *bill.Service.
type BillService interface {
	CreateBill(ctx context.Context, req bill.CreateRequest) (*bill.Bill, error)
	UpdateBill(ctx context.Context, billID string, req bill.UpdateRequest) (*bill.Bill, error)
	Get(ctx context.Context, id string) (*bill.Bill, error)
	GetByOrder(ctx context.Context, orderID string) (*bill.Bill, error)
	List(ctx context.Context, f bill.ListFilter) ([]bill.Bill, error)
}

// Handler serves the admin console API, delegating business logic to the
// injected domain services and repositories.
type Handler struct {
	orders   OrderService
	bills    BillService
	products product.Repository
	clients  client.Repository
	apikeys  auth.Repository
	pepper   string
	metrics  *metrics
}

// NewHandler constructs a Handler with the required domain dependencies.
// pepper is the server-side secret mixed into API key hashes.
func NewHandler(
	orders OrderService,
	bills BillService,
	products product.Repository,
	clients client.Repository,
	apikeys auth.Repository,
	pepper string,
	meterProvider metric.MeterProvider,
) (*Handler, error) {
	m, err := newMetrics(meterProvider.Meter("github.com/freshmandi/supply-api/internal/handler"))
	if err != nil {
		return nil, err
	}

	return &Handler{
		orders:   orders,
		bills:    bills,
		products: products,
		clients:  clients,
		apikeys:  apikeys,
		pepper:   pepper,
		metrics:  m,
	}, nil
}

// Routes builds the admin API router. Every route requires a valid API key.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.RequireAPIKey)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/pending-pricing", h.ListPendingPricing)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/finalize-prices", h.FinalizePrices)
		r.Get("/{id}/bill", h.GetOrderBill)
	})

	r.Route("/bills", func(r chi.Router) {
		r.Post("/", h.CreateBill)
		r.Get("/", h.ListBills)
		r.Get("/{id}", h.GetBill)
		r.Put("/{id}", h.UpdateBill)
	})

	r.Get("/products", h.ListProducts)
	r.Get("/clients", h.ListClients)

	return r
}
