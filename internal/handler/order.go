package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/freshmandi/supply-api/internal/domain/order"
)

// Money and quantity fields travel as JSON strings to keep exact decimal
// values on the wire; "" stands for an absent price.

type createOrderRequest struct {
	ClientID     string                   `json:"client_id"`
	DeliveryDate string                   `json:"delivery_date"`
	Instructions string                   `json:"instructions"`
	Items        []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID    string `json:"product_id"`
	Quantity     string `json:"quantity"`
	PricePerUnit string `json:"price_per_unit,omitempty"`
}

type finalizePricesRequest struct {
	Prices []linePriceRequest `json:"prices"`
}

type linePriceRequest struct {
	ProductID    string `json:"product_id"`
	PricePerUnit string `json:"price_per_unit"`
}

type orderLineResponse struct {
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	Quantity     string  `json:"quantity"`
	PricePerUnit *string `json:"price_per_unit"`
	Total        *string `json:"total"`
}

type orderResponse struct {
	ID           string              `json:"id"`
	ClientID     string              `json:"client_id"`
	Status       string              `json:"status"`
	DeliveryDate string              `json:"delivery_date"`
	Instructions string              `json:"instructions,omitempty"`
	Lines        []orderLineResponse `json:"lines"`
	TotalAmount  *string             `json:"total_amount"`
	CreatedAt    time.Time           `json:"created_at"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
}

// CreateOrder handles POST /api/admin/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ClientID == "" {
		writeError(w, http.StatusBadRequest, "client_id is required")
		return
	}
	deliveryDate, err := time.Parse("2006-01-02", req.DeliveryDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid delivery_date, use YYYY-MM-DD")
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		qty, err := decimal.NewFromString(item.Quantity)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid quantity for product "+item.ProductID)
			return
		}
		items[i] = order.ItemRequest{
			ProductID: item.ProductID,
			Quantity:  qty,
		}
		if item.PricePerUnit != "" {
			price, err := decimal.NewFromString(item.PricePerUnit)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid price_per_unit for product "+item.ProductID)
				return
			}
			items[i].PricePerUnit = decimal.NewNullDecimal(price)
		}
	}

	o, err := h.orders.CreateOrder(r.Context(), order.CreateOrderRequest{
		ClientID:     req.ClientID,
		DeliveryDate: deliveryDate,
		Instructions: req.Instructions,
		Items:        items,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	h.metrics.ordersCreated.Add(r.Context(), 1,
		metric.WithAttributes(attribute.String("status", string(o.Status))))
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// ListOrders handles GET /api/admin/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderListResponse(orders))
}

// ListPendingPricing handles GET /api/admin/orders/pending-pricing.
func (h *Handler) ListPendingPricing(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListPendingPricing(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderListResponse(orders))
}

// GetOrder handles GET /api/admin/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// FinalizePrices handles POST /api/admin/orders/{id}/finalize-prices.
func (h *Handler) FinalizePrices(w http.ResponseWriter, r *http.Request) {
	var req finalizePricesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prices := make([]order.LinePrice, len(req.Prices))
	for i, p := range req.Prices {
		price, err := decimal.NewFromString(p.PricePerUnit)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid price_per_unit for product "+p.ProductID)
			return
		}
		prices[i] = order.LinePrice{ProductID: p.ProductID, PricePerUnit: price}
	}

	o, err := h.orders.FinalizePrices(r.Context(), chi.URLParam(r, "id"), prices)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	h.metrics.pricesFinalized.Add(r.Context(), 1)
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func toOrderResponse(o *order.Order) orderResponse {
	lines := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Unit:      l.Unit,
			Quantity:  l.Quantity.String(),
		}
		if l.Priced() {
			price := l.PricePerUnit.Decimal.StringFixed(2)
			total := l.Total().StringFixed(2)
			lines[i].PricePerUnit = &price
			lines[i].Total = &total
		}
	}

	resp := orderResponse{
		ID:           o.ID,
		ClientID:     o.ClientID,
		Status:       string(o.Status),
		DeliveryDate: o.DeliveryDate.Format("2006-01-02"),
		Instructions: o.Instructions,
		Lines:        lines,
		CreatedAt:    o.CreatedAt,
	}
	if o.TotalAmount.Valid {
		total := o.TotalAmount.Decimal.StringFixed(2)
		resp.TotalAmount = &total
	}
	return resp
}

func toOrderListResponse(orders []order.Order) orderListResponse {
	resp := orderListResponse{Orders: make([]orderResponse, len(orders))}
	for i := range orders {
		resp.Orders[i] = toOrderResponse(&orders[i])
	}
	return resp
}
