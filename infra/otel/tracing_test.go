package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webitel/event-fanout-service/config"
)

func TestNewProvider_DisabledIsNoop(t *testing.T) {
	p, err := NewProvider(context.Background(), config.TracingConfig{}, "svc", "test")
	require.NoError(t, err)
	require.False(t, p.Enabled())
	require.NoError(t, p.Shutdown(context.Background()))

	_, span := p.TracerProvider().Tracer("t").Start(context.Background(), "op")
	require.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestNewProvider_Stdout(t *testing.T) {
	p, err := NewProvider(context.Background(), config.TracingConfig{Enabled: true, Exporter: ExporterStdout}, "svc", "test")
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := p.TracerProvider().Tracer("t").Start(context.Background(), "op")
	require.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), config.TracingConfig{Enabled: true, Exporter: "zipkin"}, "svc", "test")
	require.Error(t, err)
}
