// Package otel installs the global OpenTelemetry tracer provider.
package otel

import (
	"context"
	"fmt"

	"github.com/webitel/event-fanout-service/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Provider owns the SDK tracer provider, nil when tracing is disabled.
type Provider struct {
	sdk *sdktrace.TracerProvider
	tp  trace.TracerProvider
}

// NewProvider builds the provider and registers it globally, so packages
// calling otel.Tracer pick it up without injection.
func NewProvider(ctx context.Context, cfg config.TracingConfig, service, version string) (*Provider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return &Provider{tp: tp}, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Schemaless avoids schema URL conflicts with resource.Default().
	res := resource.NewSchemaless(
		attribute.String("service.name", service),
		attribute.String("service.version", version),
	)

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(sdk)

	return &Provider{sdk: sdk, tp: sdk}, nil
}

func newExporter(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterStdout, "":
		exp, err := stdouttrace.New()
		if err != nil {
			return nil, fmt.Errorf("otel: stdout exporter: %w", err)
		}
		return exp, nil
	case ExporterOTLP:
		exp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("otel: otlp exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("otel: unsupported exporter %q", cfg.Exporter)
	}
}

func (p *Provider) TracerProvider() trace.TracerProvider { return p.tp }

func (p *Provider) Enabled() bool { return p.sdk != nil }

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
