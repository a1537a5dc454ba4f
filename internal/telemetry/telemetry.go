// Package telemetry wires OpenTelemetry metrics for Appstore API calls.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	// ServiceName is reported as the service.name resource attribute
	ServiceName = "amzappstore"

	// DefaultExportInterval is how often metrics are pushed to the OTLP endpoint
	DefaultExportInterval = 15 * time.Second

	meterName = "github.com/footprintai/amzappstore"
)

// Config holds telemetry configuration
type Config struct {
	// OTLPEndpoint is the full OTLP/HTTP metrics URL. Export is disabled when empty.
	OTLPEndpoint string

	// ServiceVersion is reported as the service.version resource attribute
	ServiceVersion string

	// ExportInterval overrides DefaultExportInterval when positive
	ExportInterval time.Duration
}

// Provider owns the SDK meter provider for the lifetime of a command
type Provider struct {
	mp *sdkmetric.MeterProvider
}

// Setup creates a meter provider. Without an endpoint the provider has no
// reader, so recorded measurements are dropped.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.OTLPEndpoint != "" {
		exporter, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(cfg.OTLPEndpoint))
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}

		interval := cfg.ExportInterval
		if interval <= 0 {
			interval = DefaultExportInterval
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)

	return &Provider{mp: mp}, nil
}

// MeterProvider returns the underlying meter provider
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.mp
}

// Shutdown flushes pending measurements and stops the exporter
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.mp.Shutdown(ctx)
}

// Metrics records Appstore API request measurements
type Metrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates the API instruments on the given provider
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	requests, err := meter.Int64Counter(
		"appstore.api.requests",
		metric.WithDescription("Number of Appstore API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"appstore.api.duration",
		metric.WithDescription("Duration of Appstore API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &Metrics{requests: requests, duration: duration}, nil
}

// RecordRequest records one API call. op is a low-cardinality operation name
// such as "apks.replace"; status is 0 when the request never got a response.
// A nil receiver records nothing.
func (m *Metrics) RecordRequest(ctx context.Context, op, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("method", method),
		attribute.Int("status", status),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
