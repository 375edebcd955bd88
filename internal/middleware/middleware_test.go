package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/siwarga/rwrt-backend/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.Use(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &buf
}

func TestRequestContext(t *testing.T) {
	var seenID string
	h := RequestContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		assert.NotNil(t, GetLoggerFromContext(r.Context()))
	}))

	t.Run("generates an id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/permits", nil))
		require.NotEmpty(t, seenID)
		assert.Equal(t, seenID, rec.Header().Get(RequestIDHeader))
	})

	t.Run("keeps an incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/permits", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "abc-123", seenID)
	})
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.3")
	assert.Equal(t, "203.0.113.9", getClientIP(req))
}

func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/permits", http.StatusOK, "level=INFO msg=\"Request completed successfully\""},
		{"/permits", http.StatusConflict, "level=WARN msg=\"Request completed with client error\""},
		{"/permits", http.StatusServiceUnavailable, "level=ERROR msg=\"Request completed with server error\""},
		{"/health", http.StatusOK, "level=DEBUG msg=\"Probe served\""},
	}
	for _, tt := range tests {
		t.Run(tt.path+http.StatusText(tt.status), func(t *testing.T) {
			buf := captureLogs(t)
			h := RequestContext(LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}
