package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/agency/backoffice/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
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

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "billing", "summarize",
		telemetry.WithAttribute(telemetry.SpanAttrBookingID, "booking-1"),
		telemetry.WithAttribute(telemetry.SpanAttrCurrencies, 2),
		telemetry.WithSpanKind(trace.SpanKindServer),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "billing.summarize", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "booking-1", attrs[telemetry.SpanAttrBookingID].AsString())
	assert.Equal(t, int64(2), attrs[telemetry.SpanAttrCurrencies].AsInt64())
}

func TestSetAttributes_SkipsNonStringKeys(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.operation")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAgencyID, "agency-1",
		42, "ignored",
		telemetry.SpanAttrDefaults, true,
		telemetry.SpanAttrRetrievalID, uint64(7),
	)
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Len(t, attrs, 3)
	assert.Equal(t, "agency-1", attrs[telemetry.SpanAttrAgencyID].AsString())
	assert.True(t, attrs[telemetry.SpanAttrDefaults].AsBool())
	assert.Equal(t, int64(7), attrs[telemetry.SpanAttrRetrievalID].AsInt64())
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.failure")
	telemetry.RecordError(span, errors.New("boom"))
	telemetry.RecordError(span, nil)
	span.End()

	ended := sr.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Equal(t, "boom", ended.Status().Description)
	require.Len(t, ended.Events(), 1)
	assert.Equal(t, "exception", ended.Events()[0].Name)
}

func TestSetOKAndAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.ok")
	telemetry.AddEvent(span, "stale_retrieval", telemetry.SpanAttrRetrievalID, 3)
	telemetry.SetOK(span)
	span.End()

	ended := sr.Ended()[0]
	assert.Equal(t, codes.Ok, ended.Status().Code)
	require.Len(t, ended.Events(), 1)
	assert.Equal(t, "stale_retrieval", ended.Events()[0].Name)
}

func TestNilSpanHelpersDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.SetOK(nil)
		telemetry.AddEvent(nil, "e")
	})
}
