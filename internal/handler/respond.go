package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/freshmandi/supply-api/internal/domain/bill"
	"github.com/freshmandi/supply-api/internal/domain/order"
)

// apiError is the JSON error body for every non-2xx response.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Code: status, Message: msg})
}

// respondDomainError maps a domain error to its HTTP status: validation
// failures -> 400, unknown ids -> 404, state conflicts -> 409, incomplete
// finalization -> 422. Anything unrecognized is logged and becomes a 500
// without leaking internals.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		productNotFound *order.ProductNotFoundError
		badQuantity     *order.InvalidQuantityError
		badPrice        *order.InvalidPriceError
		incomplete      *order.IncompleteFinalizationError
	)

	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.As(err, &badQuantity),
		errors.As(err, &badPrice):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, order.ErrClientNotFound),
		errors.Is(err, bill.ErrNotFound),
		errors.As(err, &productNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrAlreadyPriced),
		errors.Is(err, bill.ErrDuplicate),
		errors.Is(err, bill.ErrOrderNotPriced):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &incomplete):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
