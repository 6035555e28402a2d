// Package tracing installs the process-wide OpenTelemetry tracer provider.
//
// The moderation gate creates its spans through otel.Tracer, so nothing is
// exported until Setup has run. OTEL_TRACES_EXPORTER picks the sink.
package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// Shutdown flushes buffered spans and releases the exporter.
type Shutdown func(context.Context) error

// NewProvider builds a tracer provider for the named exporter. It returns a
// nil provider for "none" or an empty name.
func NewProvider(exporter, serviceName string, w io.Writer) (*sdktrace.TracerProvider, error) {
	switch exporter {
	case "", ExporterNone:
		return nil, nil
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		return sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(resource.NewSchemaless(semconv.ServiceName(serviceName))),
		), nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", exporter)
	}
}

// Setup installs the provider globally. The returned Shutdown is always safe
// to call.
func Setup(exporter, serviceName string, w io.Writer) (Shutdown, error) {
	tp, err := NewProvider(exporter, serviceName, w)
	if err != nil {
		return nil, err
	}
	if tp == nil {
		return func(context.Context) error { return nil }, nil
	}
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
