// Package telemetry wires OpenTelemetry tracing for the widget API client
package telemetry

import (
	"context"
	"log"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/go-while/go-widgets/internal/config"
)

// Provider owns the tracer provider used by the binaries
type Provider struct {
	provider *sdktrace.TracerProvider
	enabled  bool
}

// Setup installs a global OTLP tracer provider when an endpoint is configured,
// either in cfg or through OTEL_EXPORTER_OTLP_ENDPOINT. Without an endpoint the
// global no-op provider stays in place and a disabled Provider is returned.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (*Provider, error) {
	endpoint := cfg.OTLPEndpoint
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint == "" {
		return &Provider{}, nil
	}

	// a full URL carries its own scheme, a bare host:port is plain HTTP
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure()}
	if strings.Contains(endpoint, "://") {
		opts = []otlptracehttp.Option{otlptracehttp.WithEndpointURL(endpoint)}
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = cfg.ServiceName
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(config.AppVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Printf("[OTEL]: exporting traces to %s as %s", endpoint, serviceName)

	return &Provider{provider: tp, enabled: true}, nil
}

// Enabled reports whether traces are exported
func (p *Provider) Enabled() bool {
	return p != nil && p.enabled
}

// TracerProvider returns the active provider, the global one when disabled
func (p *Provider) TracerProvider() oteltrace.TracerProvider {
	if p.Enabled() {
		return p.provider
	}
	return otel.GetTracerProvider()
}

// Shutdown flushes pending spans
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.provider.Shutdown(ctx)
}
