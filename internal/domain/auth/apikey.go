package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no active key matches a presented hash.
var ErrKeyNotFound = errors.New("api key not found")

// HashKey derives the storable digest of a plaintext API key. The pepper is
// a server-side secret, so a leaked table of hashes alone cannot be brute
// forced offline against short keys.
func HashKey(pepper, key string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// APIKeyInfo identifies an operator API key. Keys are stored only as
// HMAC-SHA256 hashes; the plaintext never reaches the database.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository provides lookup of active API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
