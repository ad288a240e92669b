package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func corsRequest(cfg CORSConfig, method, origin string, preflight bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/recipes", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	rec := httptest.NewRecorder()
	CORS(cfg)(okHandler).ServeHTTP(rec, req)
	return rec
}

func TestCORS_WildcardOrigin(t *testing.T) {
	rec := corsRequest(DefaultCORSConfig(), http.MethodGet, "https://app.example", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, CorrelationIDHeader, rec.Header().Get("Access-Control-Expose-Headers"))
}

func TestCORS_AllowList(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://healthylife.example", "https://admin.healthylife.example"}}

	tests := []struct {
		origin string
		want   string
	}{
		{"https://healthylife.example", "https://healthylife.example"},
		{"https://admin.healthylife.example", "https://admin.healthylife.example"},
		{"https://evil.example", ""},
		{"", ""},
	}
	for _, tt := range tests {
		rec := corsRequest(cfg, http.MethodGet, tt.origin, false)
		assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"), "origin %q", tt.origin)
		if tt.want != "" {
			assert.Equal(t, "Origin", rec.Header().Get("Vary"))
		}
	}
}

func TestCORS_CredentialsEchoOriginInsteadOfWildcard(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowCredentials = true

	rec := corsRequest(cfg, http.MethodGet, "https://app.example", false)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_Preflight(t *testing.T) {
	rec := corsRequest(DefaultCORSConfig(), http.MethodOptions, "https://app.example", true)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_PlainOptionsPassesThrough(t *testing.T) {
	rec := corsRequest(DefaultCORSConfig(), http.MethodOptions, "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_DefaultsAppliedToEmptyConfig(t *testing.T) {
	rec := corsRequest(CORSConfig{}, http.MethodGet, "", false)

	assert.Equal(t, "GET, POST, PUT, PATCH, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
