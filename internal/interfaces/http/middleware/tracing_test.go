package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})
	return sr, tp
}

func findSpan(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, span := range spans {
		if span.Name() == name {
			return span
		}
	}
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_Disabled(t *testing.T) {
	sr, tp := setupTestTracer(t)

	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: false, ServiceName: "test-service", TracerProvider: tp}))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_SpanAttributes(t *testing.T) {
	sr, tp := setupTestTracer(t)

	router := gin.New()
	router.Use(RequestID())
	router.Use(Tracing(TracingConfig{Enabled: true, ServiceName: "test-service", TracerProvider: tp}))
	router.Use(TracingAttributes())
	router.POST("/bookings/:id/summary", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/bookings/b-42/summary", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	span := findSpan(sr.Ended(), "POST /bookings/:id/summary")
	require.NotNil(t, span, "HTTP span not found")

	v, ok := spanAttr(span, "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-1", v.AsString())
	v, ok = spanAttr(span, "booking_id")
	require.True(t, ok)
	assert.Equal(t, "b-42", v.AsString())
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		status  int
		code    codes.Code
		message string
	}{
		{http.StatusOK, codes.Unset, ""},
		{http.StatusBadRequest, codes.Error, "Client Error"},
		{http.StatusNotFound, codes.Error, "Not Found"},
		{http.StatusConflict, codes.Error, "Conflict"},
		{http.StatusInternalServerError, codes.Error, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			sr, tp := setupTestTracer(t)

			router := gin.New()
			router.Use(Tracing(TracingConfig{Enabled: true, ServiceName: "test-service", TracerProvider: tp}))
			router.Use(SpanErrorMarker())
			router.GET("/test", func(c *gin.Context) {
				c.Status(tt.status)
			})

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

			span := findSpan(sr.Ended(), "GET /test")
			require.NotNil(t, span)
			if tt.code == codes.Error {
				assert.Equal(t, codes.Error, span.Status().Code)
				assert.Equal(t, tt.message, span.Status().Description)
			} else {
				assert.NotEqual(t, codes.Error, span.Status().Code)
			}
		})
	}
}
