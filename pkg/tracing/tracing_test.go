package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestHTTPMiddlewareRecordsSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := installRecorder(t)

	r := gin.New()
	r.Use(HTTPMiddleware())
	r.GET("/wallets/:id", func(c *gin.Context) {
		c.Set(PrincipalKey, "alice-aa")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/wallets/1", nil))

	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /wallets/:id", spans[0].Name())

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "alice-aa", attrs["enduser.id"])
	assert.Equal(t, "200", attrs["http.status_code"])
}

func TestTraceExternalCallRecordsError(t *testing.T) {
	recorder := installRecorder(t)
	boom := errors.New("gateway down")

	err := TraceExternalCall(context.Background(), "gateway", "settle", func(ctx context.Context) error {
		assert.NotEmpty(t, GetTraceIDFromContext(ctx))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "gateway settle", spans[0].Name())
	assert.Equal(t, "gateway down", spans[0].Status().Description)
}

func TestInitProviderDisabled(t *testing.T) {
	shutdown, err := InitProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
