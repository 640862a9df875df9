package billing

import "time"

// Retrieval stages
const (
	StageConfig     = "config"
	StageCommission = "commission"
)

// Retrieval outcomes
const (
	OutcomeOK       = "ok"
	OutcomeDefaults = "defaults"
	OutcomeCanceled = "canceled"
)

// MetricsRecorder receives retrieval and summary measurements
type MetricsRecorder interface {
	ObserveRetrieval(stage, outcome string, elapsed time.Duration)
	IncStaleRetrieval()
	ObserveSummary(currencies int, elapsed time.Duration)
	IncOverrideWrite(operation, outcome string)
}

// NopMetrics discards every measurement
type NopMetrics struct{}

func (NopMetrics) ObserveRetrieval(string, string, time.Duration) {}
func (NopMetrics) IncStaleRetrieval()                             {}
func (NopMetrics) ObserveSummary(int, time.Duration)              {}
func (NopMetrics) IncOverrideWrite(string, string)                {}

// MultiMetrics fans every measurement out to each recorder
type MultiMetrics []MetricsRecorder

func (m MultiMetrics) ObserveRetrieval(stage, outcome string, elapsed time.Duration) {
	for _, r := range m {
		r.ObserveRetrieval(stage, outcome, elapsed)
	}
}

func (m MultiMetrics) IncStaleRetrieval() {
	for _, r := range m {
		r.IncStaleRetrieval()
	}
}

func (m MultiMetrics) ObserveSummary(currencies int, elapsed time.Duration) {
	for _, r := range m {
		r.ObserveSummary(currencies, elapsed)
	}
}

func (m MultiMetrics) IncOverrideWrite(operation, outcome string) {
	for _, r := range m {
		r.IncOverrideWrite(operation, outcome)
	}
}
