package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fieldMap(entry observer.LoggedEntry) map[string]any {
	return entry.ContextMap()
}

func TestFromContext(t *testing.T) {
	t.Run("returns stored logger", func(t *testing.T) {
		l := zap.NewExample()
		assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
	})

	t.Run("returns nop logger when missing", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})
}

func TestWithBookingID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx, l := WithBookingID(context.Background(), zap.New(core), "booking-42")

	l.Info("loaded")

	assert.Equal(t, "booking-42", GetBookingID(ctx))
	assert.Same(t, l, FromContext(ctx))
	require.Len(t, recorded.All(), 1)
	assert.Equal(t, "booking-42", fieldMap(recorded.All()[0])["booking_id"])
}

func TestContextChaining(t *testing.T) {
	ctx := context.Background()
	l := zap.NewNop()
	ctx, l = WithRequestID(ctx, l, "req-1")
	ctx, l = WithAgencyID(ctx, l, "agency-1")
	ctx, _ = WithBookingID(ctx, l, "booking-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "agency-1", GetAgencyID(ctx))
	assert.Equal(t, "booking-1", GetBookingID(ctx))
	assert.Empty(t, GetBookingID(context.Background()))
}

func TestContextLogger(t *testing.T) {
	t.Run("injects context identifiers", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		ctx := context.WithValue(context.Background(), BookingIDKey, "booking-7")
		ctx = context.WithValue(ctx, AgencyIDKey, "agency-3")

		WithLogger(ctx, zap.New(core)).Warn("retrieval defaulted")

		require.Len(t, recorded.All(), 1)
		fields := fieldMap(recorded.All()[0])
		assert.Equal(t, "booking-7", fields["booking_id"])
		assert.Equal(t, "agency-3", fields["agency_id"])
		assert.NotContains(t, fields, "request_id")
	})

	t.Run("injects trace and span ids", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider()
		defer func() { _ = tp.Shutdown(context.Background()) }()
		ctx, span := tp.Tracer("test").Start(context.Background(), "summary")
		defer span.End()

		core, recorded := observer.New(zapcore.InfoLevel)
		WithLogger(ctx, zap.New(core)).Info("traced")

		fields := fieldMap(recorded.All()[0])
		assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
		assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
		assert.Equal(t, GetTraceID(ctx), fields["trace_id"])
	})

	t.Run("no trace id without span", func(t *testing.T) {
		assert.Empty(t, GetTraceID(context.Background()))
	})

	t.Run("with adds fields and survives nil logger", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		WithLogger(context.Background(), zap.New(core)).With(zap.String("currency", "USD")).Info("x")
		assert.Equal(t, "USD", fieldMap(recorded.All()[0])["currency"])

		assert.NotPanics(t, func() {
			WithLogger(context.Background(), nil).With(zap.Int("n", 1)).Error("y")
			L(context.Background()).Debug("z")
			_ = L(context.Background()).Zap()
		})
	})
}
