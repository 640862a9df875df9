// Package telemetry wires OpenTelemetry traces, metrics and logs plus the
// Prometheus scrape endpoint.
package telemetry

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// ServiceVersion is reported on every exported resource.
const ServiceVersion = "1.0.0"

// DefaultMetricsExportInterval is used when Config.MetricsExportInterval is zero.
const DefaultMetricsExportInterval = 60 * time.Second

// Config holds telemetry configuration shared by the trace, metric and log
// providers.
type Config struct {
	Enabled               bool
	CollectorEndpoint     string
	SamplingRatio         float64
	ServiceName           string
	Insecure              bool
	MetricsExportInterval time.Duration
}

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
