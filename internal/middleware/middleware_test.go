package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationHonorsCallerHeader(t *testing.T) {
	var seen string
	handler := Correlation(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "caller-id-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "caller-id-1", seen)
	assert.Equal(t, "caller-id-1", rec.Header().Get("X-Correlation-ID"))
}

func TestCorrelationGeneratesIDWhenMissing(t *testing.T) {
	var seen string
	handler := Correlation(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Correlation-ID"))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCorrelationIDOutsideRequestScope(t *testing.T) {
	assert.Empty(t, CorrelationID(context.Background()))
}
