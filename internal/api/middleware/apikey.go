package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shiftcast/shiftcast/internal/config"
)

// APIKeyAuth validates the static API key on /api/v1/* requests.
//
// When a key is configured, requests must carry it via:
//   - Authorization: Bearer <key>  (or the configured header)
//   - X-API-Key: <key>
//
// The banner and health endpoints are always public. An empty key
// disables the check entirely.
type APIKeyAuth struct {
	header string
	key    string
}

// NewAPIKeyAuth creates the API key middleware from config.
func NewAPIKeyAuth(cfg config.AuthConfig) *APIKeyAuth {
	header := cfg.APIKeyHeader
	if header == "" {
		header = "Authorization"
	}
	return &APIKeyAuth{header: header, key: cfg.APIKey}
}

// Enabled reports whether API key auth is active.
func (a *APIKeyAuth) Enabled() bool {
	return a.key != ""
}

// Middleware returns an http.Handler middleware that enforces the key.
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		candidate := a.extractKey(r)
		if candidate == "" {
			respondUnauthorized(w, "API key required. Set Authorization: Bearer <key> or X-API-Key header.")
			return
		}
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(a.key)) != 1 {
			respondUnauthorized(w, "Invalid API key.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *APIKeyAuth) extractKey(r *http.Request) string {
	if v := r.Header.Get(a.header); v != "" {
		return strings.TrimPrefix(v, "Bearer ")
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return ""
}

func isPublicPath(path string) bool {
	switch path {
	case "/", "/healthz", "/readyz":
		return true
	}
	return false
}

func respondUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="shiftcast"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": msg,
	})
}
