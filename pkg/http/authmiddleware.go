package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenFromRequest extracts a Bearer token or, failing that, the X-API-Key
// header value.
func TokenFromRequest(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
		return token
	}
	return r.Header.Get("X-API-Key")
}

// APIKeyGate creates HTTP middleware that requires one of keys as a Bearer
// token or X-API-Key header. With no keys configured every request passes.
// Preflight requests are never gated.
func APIKeyGate(keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := TokenFromRequest(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized: missing authentication token", http.StatusUnauthorized)
				return
			}
			if !validKey(keys, token) {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				http.Error(w, "Unauthorized: invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// validKey compares token against every key in constant time.
func validKey(keys []string, token string) bool {
	matched := 0
	for _, k := range keys {
		matched |= subtle.ConstantTimeCompare([]byte(k), []byte(token))
	}
	return matched == 1
}
