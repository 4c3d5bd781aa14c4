// Package tracing installs an OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/macropower/comtrya/pkg/version"
)

const ServiceName = "comtrya"

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(context.Context) error

// Opt configures [Setup].
type Opt func(*options)

type options struct {
	exporter sdktrace.SpanExporter
	insecure bool
}

// WithExporter uses exp instead of an OTLP exporter.
func WithExporter(exp sdktrace.SpanExporter) Opt {
	return func(o *options) {
		o.exporter = exp
	}
}

// WithInsecure disables TLS for the OTLP connection.
func WithInsecure(insecure bool) Opt {
	return func(o *options) {
		o.insecure = insecure
	}
}

// Setup installs a global tracer provider exporting to the OTLP/gRPC
// endpoint. With an empty endpoint and no exporter, the global no-op
// provider is kept and the returned shutdown does nothing.
func Setup(ctx context.Context, endpoint string, opts ...Opt) (ShutdownFunc, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if endpoint == "" && o.exporter == nil {
		return func(context.Context) error { return nil }, nil
	}

	exp := o.exporter
	if exp == nil {
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if o.insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}

		var err error

		exp, err = otlptracegrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version.GetVersion()),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if err != nil {
			return fmt.Errorf("shutdown tracer provider: %w", err)
		}

		return nil
	}, nil
}
