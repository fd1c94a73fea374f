// Package http provides HTTP middleware for the MCP endpoint.
package http

import (
	"net/http"
	"slices"
	"strings"
)

var (
	corsAllowMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions,
	}, ", ")

	corsAllowHeaders = strings.Join([]string{
		"Content-Type", "Accept", "Authorization", "X-API-Key",
		"Mcp-Session-Id", "Mcp-Protocol-Version", "Last-Event-ID",
	}, ", ")

	corsExposeHeaders = strings.Join([]string{"Mcp-Session-Id", "Mcp-Protocol-Version"}, ", ")
)

// CORSMiddleware adds CORS headers for browser-based MCP clients and answers
// preflight requests. An empty origins list, or one containing "*", allows
// every origin. Requests from origins not in the list get no CORS headers.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowAll := len(origins) == 0 || slices.Contains(origins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case origin == "":
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowAll || slices.Contains(origins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			default:
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
			w.Header().Set("Access-Control-Expose-Headers", corsExposeHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
