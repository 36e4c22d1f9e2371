package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"cqrskit/internal/config"
)

// Provider is the tracer provider the tracing interceptor uses, plus its
// shutdown. It is a lifecycle component.
type Provider struct {
	trace.TracerProvider
	shutdown func(context.Context) error
}

// Setup installs a global sdk TracerProvider when tracing is enabled. Spans go
// to the OTLP/HTTP endpoint if one is set and are otherwise only sampled.
// Disabled tracing yields the global (no-op) provider.
func Setup(ctx context.Context, cfg config.Tracing) (*Provider, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return &Provider{TracerProvider: otel.GetTracerProvider(), shutdown: noop}, nil
	}

	name := cfg.ServiceName
	if name == "" {
		name = "cqrskit"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(name),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if cfg.Endpoint != "" {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(cfg.Endpoint),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Provider{TracerProvider: tp, shutdown: tp.Shutdown}, nil
}

func (p *Provider) OnApplicationShutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}
