// Package auth holds the OpenPhone API credential and produces the
// authorization header injected into every request.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// HeaderAuthorization is the header carrying the raw API key.
// OpenPhone expects the key verbatim, without a "Bearer " prefix.
const HeaderAuthorization = "Authorization"

// ErrEmptyCredential is returned when the API key is empty or whitespace.
var ErrEmptyCredential = errors.New("API key must be a non-empty string")

// APIKey is an immutable OpenPhone API key.
//
// The raw secret is only reachable through Headers. Every diagnostic
// representation (String, GoString, JSON, zerolog) masks all but the
// last four characters.
type APIKey struct {
	secret string
}

// NewAPIKey validates secret and wraps it in an APIKey.
func NewAPIKey(secret string) (*APIKey, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptyCredential
	}
	return &APIKey{secret: secret}, nil
}

// Headers returns the single authorization header for a request.
// A fresh map is returned on every call so callers may merge into it.
func (k *APIKey) Headers() http.Header {
	h := make(http.Header, 1)
	h.Set(HeaderAuthorization, k.secret)
	return h
}

// Fingerprint returns a short, stable, non-reversible identifier of the key.
// It is used to partition shared state (cache keys) per account.
func (k *APIKey) Fingerprint() string {
	sum := sha256.Sum256([]byte(k.secret))
	return hex.EncodeToString(sum[:6])
}

// Masked returns the key as "***" followed by its last four characters,
// or just "***" for keys shorter than four characters.
func (k *APIKey) Masked() string {
	if k == nil {
		return "***"
	}
	r := []rune(k.secret)
	if len(r) < 4 {
		return "***"
	}
	return "***" + string(r[len(r)-4:])
}

// String implements fmt.Stringer.
func (k *APIKey) String() string {
	return "APIKey(" + k.Masked() + ")"
}

// GoString keeps %#v from printing the struct field.
func (k *APIKey) GoString() string {
	return k.String()
}

// MarshalJSON renders the masked form.
func (k *APIKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Masked())
}

// MarshalZerologObject lets the key be logged with Object("api_key", key).
func (k *APIKey) MarshalZerologObject(e *zerolog.Event) {
	e.Str("key", k.Masked())
}
