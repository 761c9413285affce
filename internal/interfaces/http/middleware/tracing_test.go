package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func setupSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func tracedEngine() *gin.Engine {
	r := gin.New()
	r.Use(logger.GinMiddleware(zap.NewNop()), Tracing("avparts-test"), SpanEnricher())
	r.GET("/api/v1/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/boom", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })
	return r
}

func TestTracing_EnrichesServerSpan(t *testing.T) {
	sr := setupSpanRecorder(t)
	r := tracedEngine()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/7", nil)
	req.Header.Set(logger.HeaderRequestID, "req-123")
	req.Header.Set(logger.HeaderUserID, "ops-user")
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Contains(t, span.Name(), "/api/v1/orders/:id")

	rid, ok := spanAttr(span, "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-123", rid.AsString())
	actor, ok := spanAttr(span, "actor")
	require.True(t, ok)
	assert.Equal(t, "ops-user", actor.AsString())
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestTracing_MarksServerErrors(t *testing.T) {
	sr := setupSpanRecorder(t)
	r := tracedEngine()

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/boom", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTracing_TruncatesRequestID(t *testing.T) {
	sr := setupSpanRecorder(t)
	r := tracedEngine()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/7", nil)
	req.Header.Set(logger.HeaderRequestID, strings.Repeat("r", 300))
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	rid, ok := spanAttr(spans[0], "request_id")
	require.True(t, ok)
	assert.Len(t, rid.AsString(), MaxRequestIDLength)
}
