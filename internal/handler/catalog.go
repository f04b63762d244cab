package handler

import (
	"net/http"
)

type productResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Unit           string `json:"unit"`
	Category       string `json:"category,omitempty"`
	ReferencePrice string `json:"reference_price"`
}

type clientResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// ListProducts handles GET /api/admin/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse{
			ID:             p.ID,
			Name:           p.Name,
			Unit:           p.Unit,
			Category:       p.Category,
			ReferencePrice: p.ReferencePrice.StringFixed(2),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": resp})
}

// ListClients handles GET /api/admin/clients.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]clientResponse, len(clients))
	for i, c := range clients {
		resp[i] = clientResponse{
			ID:      c.ID,
			Name:    c.Name,
			Contact: c.Contact,
			Phone:   c.Phone,
			Email:   c.Email,
			Address: c.Address,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": resp})
}
