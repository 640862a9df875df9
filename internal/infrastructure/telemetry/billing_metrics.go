package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics constructor receives no meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// Metric attribute keys
var (
	AttrStage     = attribute.Key("stage")
	AttrOutcome   = attribute.Key("outcome")
	AttrOperation = attribute.Key("operation")
)

// BillingMetrics records summary and retrieval measurements through an
// OpenTelemetry meter.
type BillingMetrics struct {
	retrievalDuration *Histogram
	retrievalTotal    *Counter
	staleTotal        *Counter
	summaryDuration   *Histogram
	summaryCurrencies *Histogram
	overrideWrites    *Counter
}

// NewBillingMetrics creates the billing instruments on meter
func NewBillingMetrics(meter metric.Meter) (*BillingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		bm  BillingMetrics
		err error
	)
	if bm.retrievalDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "billing.retrieval.duration",
		Description: "Duration of configuration and commission retrieval stages",
		Unit:        "s",
		Boundaries:  RetrievalDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.retrievalTotal, err = NewCounter(meter, "billing.retrieval.total",
		"Retrieval stages by outcome", "{stage}"); err != nil {
		return nil, err
	}
	if bm.staleTotal, err = NewCounter(meter, "billing.retrieval.stale",
		"Retrievals discarded because a newer one started", "{retrieval}"); err != nil {
		return nil, err
	}
	if bm.summaryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "billing.summary.duration",
		Description: "Duration of summary computation",
		Unit:        "s",
		Boundaries:  ComputeDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.summaryCurrencies, err = NewHistogram(meter, HistogramOpts{
		Name:        "billing.summary.currencies",
		Description: "Currencies present in a summary",
		Unit:        "{currency}",
		Boundaries:  CurrencyCountBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.overrideWrites, err = NewCounter(meter, "billing.commission_override.writes",
		"Commission override writes by operation and outcome", "{write}"); err != nil {
		return nil, err
	}
	return &bm, nil
}

func (m *BillingMetrics) ObserveRetrieval(stage, outcome string, elapsed time.Duration) {
	ctx := context.Background()
	m.retrievalDuration.RecordDuration(ctx, elapsed, metric.WithAttributes(AttrStage.String(stage)))
	m.retrievalTotal.Inc(ctx, metric.WithAttributes(AttrStage.String(stage), AttrOutcome.String(outcome)))
}

func (m *BillingMetrics) IncStaleRetrieval() {
	m.staleTotal.Inc(context.Background())
}

func (m *BillingMetrics) ObserveSummary(currencies int, elapsed time.Duration) {
	ctx := context.Background()
	m.summaryDuration.RecordDuration(ctx, elapsed)
	m.summaryCurrencies.Record(ctx, float64(currencies))
}

func (m *BillingMetrics) IncOverrideWrite(operation, outcome string) {
	m.overrideWrites.Inc(context.Background(),
		metric.WithAttributes(AttrOperation.String(operation), AttrOutcome.String(outcome)))
}
