package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantrisk/internal/api/handlers"
	"github.com/wonny/quantrisk/pkg/config"
	"github.com/wonny/quantrisk/pkg/logger"
)

func newTestRouter(limits config.RateLimitConfig) http.Handler {
	log := logger.Nop()
	return NewRouter(handlers.NewAnalysisHandler(nil, log), limits, log)
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	rec := serve(newTestRouter(config.RateLimitConfig{}), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "quantrisk-api", body["service"])
}

func TestRoutes(t *testing.T) {
	router := newTestRouter(config.RateLimitConfig{})
	returns := `{"returns": [{"date": "2024-01-02", "value": 0.01}, {"date": "2024-01-03", "value": -0.02}, {"date": "2024-01-04", "value": 0.005}]}`

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"config", http.MethodGet, "/api/config", "", http.StatusOK},
		{"drawdowns", http.MethodPost, "/api/drawdowns", returns, http.StatusOK},
		{"stats", http.MethodPost, "/api/stats", returns, http.StatusOK},
		{"rolling beta without benchmark", http.MethodPost, "/api/rolling-beta", returns, http.StatusBadRequest},
		{"cone", http.MethodPost, "/api/cone", returns, http.StatusUnprocessableEntity},
		{"wrong method", http.MethodGet, "/api/drawdowns", "", http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/api/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(config.RateLimitConfig{RPS: 0.001, Burst: 1})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/config", "").Code)

	rec := serve(router, http.MethodGet, "/api/config", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// health는 제한 대상 아님
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health", "").Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	h := recoveryMiddleware(logger.Nop())(panicking)

	rec := serve(h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestLoggingMiddleware_RecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&config.Config{Env: "test", LogLevel: "warn", LogFormat: "json"}, &buf)
	router := NewRouter(handlers.NewAnalysisHandler(nil, logger.Nop()), config.RateLimitConfig{}, log)

	serve(router, http.MethodGet, "/api/config", "")
	assert.Zero(t, buf.Len(), "successful requests log at debug")

	rec := serve(router, http.MethodPost, "/api/drawdowns", `{"returns": []}`)
	require.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "HTTP request failed", entry["message"])
	assert.Equal(t, float64(rec.Code), entry["status"])
	assert.Equal(t, "/api/drawdowns", entry["path"])
}

func TestServerHandler(t *testing.T) {
	router := newTestRouter(config.RateLimitConfig{})
	srv := New(&config.Config{Port: "0", Env: "test"}, logger.Nop(), router)

	rec := serve(srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
