package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/freshmandi/supply-api/internal/domain/auth"
)

// apiKeyHeader carries the operator API key on every admin request.
const apiKeyHeader = "X-Api-Key"

// RequireAPIKey authenticates an incoming request by hashing the presented
// key with the server pepper, looking it up among active keys, and doing a
// constant-time comparison to prevent timing attacks.
func (h *Handler) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "api key required")
			return
		}

		hash := auth.HashKey(h.pepper, key)
		info, err := h.apikeys.FindByHash(r.Context(), hash)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if subtle.ConstantTimeCompare([]byte(hash), []byte(info.KeyHash)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}
