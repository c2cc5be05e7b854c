// Package observability exports the agent's counters and job timings as OpenTelemetry
// instruments, served in Prometheus exposition format.
package observability

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelglobal "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const meterName = "github.com/jonathan/gtm-agent"

var (
	providerOnce   sync.Once
	metricsHandler http.Handler
	providerErr    error
)

// InitMeterProvider installs the global MeterProvider, backed by a Prometheus
// exporter, and returns the handler that serves /metrics. The provider is
// installed once per process; later calls get the same handler, so the
// instruments from InitMetrics stay attached to it.
func InitMeterProvider(ctx context.Context, serviceName string) (http.Handler, error) {
	providerOnce.Do(func() {
		metricsHandler, providerErr = newMeterProvider(ctx, serviceName)
	})
	return metricsHandler, providerErr
}

func newMeterProvider(ctx context.Context, serviceName string) (http.Handler, error) {
	if serviceName == "" {
		serviceName = "gtm-agent"
	}
	reg := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otelglobal.SetMeterProvider(provider)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}), nil
}

// Meter returns the global meter for the agent.
func Meter() metric.Meter {
	return otelglobal.Meter(meterName)
}

// Common attribute keys for metrics.
var (
	AttrJob     = attribute.Key("job")
	AttrOutcome = attribute.Key("outcome")
	AttrCounter = attribute.Key("counter")
	AttrTrigger = attribute.Key("trigger")
)
