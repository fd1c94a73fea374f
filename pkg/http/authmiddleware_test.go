package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const testAPIKey = "api-key-456"

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"bearer", map[string]string{"Authorization": "Bearer test-token-123"}, "test-token-123"},
		{"api key", map[string]string{"X-API-Key": testAPIKey}, testAPIKey},
		{"bearer wins", map[string]string{"Authorization": "Bearer bearer-token", "X-API-Key": "api-key"}, "bearer-token"},
		{"basic ignored", map[string]string{"Authorization": "Basic abc"}, ""},
		{"none", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := TokenFromRequest(req); got != tt.want {
				t.Errorf("TokenFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyGate(t *testing.T) {
	handler := APIKeyGate([]string{"other-key", testAPIKey})(okHandler())

	tests := []struct {
		name       string
		method     string
		header     string
		value      string
		wantStatus int
	}{
		{"valid api key", http.MethodPost, "X-API-Key", testAPIKey, http.StatusAccepted},
		{"valid bearer", http.MethodPost, "Authorization", "Bearer " + testAPIKey, http.StatusAccepted},
		{"missing", http.MethodPost, "", "", http.StatusUnauthorized},
		{"wrong key", http.MethodPost, "X-API-Key", "nope", http.StatusUnauthorized},
		{"preflight not gated", http.MethodOptions, "", "", http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/mcp", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestAPIKeyGate_NoKeysPassthrough(t *testing.T) {
	handler := APIKeyGate(nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
}
