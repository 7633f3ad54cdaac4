// Package metrics provides OpenTelemetry metrics instrumentation with Prometheus export.
// Supports business operation metrics and HTTP request metrics for observability.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Provider owns the Prometheus registry scraped at /metrics and the OpenTelemetry meter
// provider whose instruments are exported into it.
type Provider struct {
	meterProvider *metric.MeterProvider
	registry      *prometheus.Registry
	handler       http.Handler
}

// NewProvider builds the registry and meter provider. The registry also carries the Go
// runtime and build info collectors and a process collector prefixed with namespace
// (e.g., "ledger_process_open_fds").
func NewProvider(namespace string) (*Provider, error) {
	registry := prometheus.NewRegistry()
	for name, collector := range map[string]prometheus.Collector{
		"go":         collectors.NewGoCollector(),
		"build info": collectors.NewBuildInfoCollector(),
		"process":    collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register %s collector: %w", name, err)
		}
	}

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	// Scrapes of the registry are themselves counted in promhttp_metric_handler_requests_total.
	handler := promhttp.InstrumentMetricHandler(registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	return &Provider{
		meterProvider: metric.NewMeterProvider(metric.WithReader(exporter)),
		registry:      registry,
		handler:       handler,
	}, nil
}

// Handler serves the registry in Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	return p.handler
}

// MeterProvider returns the OpenTelemetry meter provider for creating meters.
func (p *Provider) MeterProvider() *metric.MeterProvider {
	return p.meterProvider
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
