package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/feasibility-study/internal/logger"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), logger.Nop(), "", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestOTLPOptions(t *testing.T) {
	assert.Len(t, otlpOptions("collector:4318"), 2, "endpoint and insecure options")
	assert.Len(t, otlpOptions("https://collector.example.com/v1/traces"), 1, "url option")
}

func TestMiddlewareSetsIDs(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, rec.Header().Get(HeaderTraceID))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
