package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/alanyoungcy/brandit/internal/crypto"
)

// Auth returns middleware that validates API requests using either a Bearer
// token in the Authorization header or a static key in the X-API-Key header.
// If apiKey is empty, the middleware passes all requests through (disabled).
// Paths in public are never checked.
func Auth(apiKey string, public ...string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(public))
	for _, p := range public {
		skip[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" || skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r, "X-API-Key")
			if token == "" {
				writeUnauthorized(w, "missing authentication token")
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				writeUnauthorized(w, "invalid authentication token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminAuth guards admin routes with a key checked against a bcrypt hash.
// The key is read from X-Admin-Key or a Bearer token. With no hash
// configured every admin request is refused.
func AdminAuth(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				writeUnauthorized(w, "admin access is not configured")
				return
			}
			key := extractToken(r, "X-Admin-Key")
			if key == "" {
				writeUnauthorized(w, "missing admin key")
				return
			}
			if !crypto.CheckAdminKey(keyHash, key) {
				writeUnauthorized(w, "invalid admin key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken looks for a key in header first, then in the Authorization
// header (Bearer scheme).
func extractToken(r *http.Request, header string) string {
	if key := r.Header.Get(header); key != "" {
		return strings.TrimSpace(key)
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
