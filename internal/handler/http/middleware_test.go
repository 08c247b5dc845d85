package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nileways/storefront/pkg/logger"
	"github.com/nileways/storefront/pkg/middleware"
)

func TestSession_MintsAndReusesSessionID(t *testing.T) {
	var seen string
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionID(r.Context())
	})
	handler = Session(false)(handler)

	// First contact mints an ID.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(SessionHeader))

	// A provided header is reused verbatim.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionHeader, "sess-abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "sess-abc", seen)
}

// RequestLogger is mounted after Session in the router so the request-scoped
// logger carries the session ID; this pins that ordering.
func TestRequestScopedLoggerCarriesSessionID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
		w.WriteHeader(http.StatusNoContent)
	})
	handler = middleware.RequestLogger(base)(handler)
	handler = Session(false)(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionHeader, "sess-abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"session_id":"sess-abc"`)
}
