package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewBillingMetrics_NilMeter(t *testing.T) {
	_, err := NewBillingMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestBillingMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	bm, err := NewBillingMetrics(provider.Meter("billing-test"))
	require.NoError(t, err)

	bm.ObserveRetrieval("config", "ok", 10*time.Millisecond)
	bm.ObserveRetrieval("commission", "defaults", 20*time.Millisecond)
	bm.IncStaleRetrieval()
	bm.IncStaleRetrieval()
	bm.ObserveSummary(3, time.Millisecond)
	bm.IncOverrideWrite("delete", "not_found")

	metrics := collect(t, reader)

	stale, ok := metrics["billing.retrieval.stale"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, stale.DataPoints, 1)
	assert.Equal(t, int64(2), stale.DataPoints[0].Value)

	retrievals, ok := metrics["billing.retrieval.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, retrievals.DataPoints, 2)

	currencies, ok := metrics["billing.summary.currencies"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, currencies.DataPoints, 1)
	assert.Equal(t, 3.0, currencies.DataPoints[0].Sum)

	writes, ok := metrics["billing.commission_override.writes"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, writes.DataPoints, 1)
	op, _ := writes.DataPoints[0].Attributes.Value(AttrOperation)
	assert.Equal(t, "delete", op.AsString())
}
