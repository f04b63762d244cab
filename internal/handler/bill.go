package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/freshmandi/supply-api/internal/domain/bill"
)

type createBillRequest struct {
	OrderID       string  `json:"order_id"`
	BillDate      string  `json:"bill_date"`
	DueDate       *string `json:"due_date"`
	TaxRate       *string `json:"tax_rate"`
	Discount      *string `json:"discount"`
	PaymentMethod string  `json:"payment_method"`
	Paid          bool    `json:"paid"`
	Comments      string  `json:"comments"`
}

type updateBillRequest struct {
	Paid          *bool   `json:"paid"`
	PaymentMethod *string `json:"payment_method"`
	Comments      *string `json:"comments"`
	TaxRate       *string `json:"tax_rate"`
	Discount      *string `json:"discount"`
}

type billLineResponse struct {
	ProductID    string `json:"product_id,omitempty"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	Quantity     string `json:"quantity"`
	PricePerUnit string `json:"price_per_unit"`
	Total        string `json:"total"`
}

type billResponse struct {
	ID            string             `json:"id"`
	OrderID       string             `json:"order_id"`
	ClientID      string             `json:"client_id"`
	BillDate      string             `json:"bill_date"`
	DueDate       string             `json:"due_date"`
	TaxRate       string             `json:"tax_rate"`
	Discount      string             `json:"discount"`
	Paid          bool               `json:"paid"`
	PaymentMethod string             `json:"payment_method,omitempty"`
	Comments      string             `json:"comments,omitempty"`
	Amount        string             `json:"amount"`
	TotalAmount   string             `json:"total_amount"`
	Items         []billLineResponse `json:"items"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type billListResponse struct {
	Bills []billResponse `json:"bills"`
}

// CreateBill handles POST /api/admin/bills.
func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}
	billDate, err := time.Parse("2006-01-02", req.BillDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bill_date, use YYYY-MM-DD")
		return
	}

	svcReq := bill.CreateRequest{
		OrderID:       req.OrderID,
		BillDate:      billDate,
		PaymentMethod: req.PaymentMethod,
		Paid:          req.Paid,
		Comments:      req.Comments,
	}
	if req.DueDate != nil {
		due, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid due_date, use YYYY-MM-DD")
			return
		}
		svcReq.DueDate = &due
	}
	if svcReq.TaxRate, err = parseOptionalDecimal(req.TaxRate); err != nil {
		writeError(w, http.StatusBadRequest, "invalid tax_rate")
		return
	}
	if svcReq.Discount, err = parseOptionalDecimal(req.Discount); err != nil {
		writeError(w, http.StatusBadRequest, "invalid discount")
		return
	}

	b, err := h.bills.CreateBill(r.Context(), svcReq)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	h.metrics.billsCreated.Add(r.Context(), 1)
	writeJSON(w, http.StatusCreated, toBillResponse(b))
}

// UpdateBill handles PUT /api/admin/bills/{id}.
func (h *Handler) UpdateBill(w http.ResponseWriter, r *http.Request) {
	var req updateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svcReq := bill.UpdateRequest{
		Paid:          req.Paid,
		PaymentMethod: req.PaymentMethod,
		Comments:      req.Comments,
	}
	var err error
	if svcReq.TaxRate, err = parseOptionalDecimal(req.TaxRate); err != nil {
		writeError(w, http.StatusBadRequest, "invalid tax_rate")
		return
	}
	if svcReq.Discount, err = parseOptionalDecimal(req.Discount); err != nil {
		writeError(w, http.StatusBadRequest, "invalid discount")
		return
	}

	b, err := h.bills.UpdateBill(r.Context(), chi.URLParam(r, "id"), svcReq)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBillResponse(b))
}

// GetBill handles GET /api/admin/bills/{id}.
func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	b, err := h.bills.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBillResponse(b))
}

// GetOrderBill handles GET /api/admin/orders/{id}/bill.
func (h *Handler) GetOrderBill(w http.ResponseWriter, r *http.Request) {
	b, err := h.bills.GetByOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBillResponse(b))
}

// ListBills handles GET /api/admin/bills with optional client_id and paid
// filters.
func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	f := bill.ListFilter{ClientID: r.URL.Query().Get("client_id")}
	if s := r.URL.Query().Get("paid"); s != "" {
		paid, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid paid filter")
			return
		}
		f.Paid = &paid
	}

	bills, err := h.bills.List(r.Context(), f)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := billListResponse{Bills: make([]billResponse, len(bills))}
	for i := range bills {
		resp.Bills[i] = toBillResponse(&bills[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseOptionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func toBillResponse(b *bill.Bill) billResponse {
	items := make([]billLineResponse, len(b.Items))
	for i, it := range b.Items {
		items[i] = billLineResponse{
			ProductID:    it.ProductID,
			Name:         it.Name,
			Unit:         it.Unit,
			Quantity:     it.Quantity.String(),
			PricePerUnit: it.PricePerUnit.StringFixed(2),
			Total:        it.Quantity.Mul(it.PricePerUnit).Round(2).StringFixed(2),
		}
	}

	return billResponse{
		ID:            b.ID,
		OrderID:       b.OrderID,
		ClientID:      b.ClientID,
		BillDate:      b.BillDate.Format("2006-01-02"),
		DueDate:       b.DueDate.Format("2006-01-02"),
		TaxRate:       b.TaxRate.String(),
		Discount:      b.Discount.StringFixed(2),
		Paid:          b.Paid,
		PaymentMethod: b.PaymentMethod,
		Comments:      b.Comments,
		Amount:        b.Amount.StringFixed(2),
		TotalAmount:   b.TotalAmount.StringFixed(2),
		Items:         items,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}
