package otelx

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

type Config struct {
	Enabled      bool    `mapstructure:"OTEL_ENABLED"`
	ServiceName  string  `mapstructure:"SERVICE_NAME"`
	OTLPEndpoint string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"` // host:port, e.g. jaeger:4317
	SampleRatio  float64 `mapstructure:"OTEL_SAMPLING_RATIO"`
}

// Defaults are the config keys (and fallbacks) Setup understands.
func Defaults() map[string]any {
	return map[string]any{
		"OTEL_ENABLED":                false,
		"OTEL_EXPORTER_OTLP_ENDPOINT": "jaeger:4317",
		"OTEL_SAMPLING_RATIO":         1.0,
	}
}

// Setup installs the W3C propagators and, when enabled, a batching OTLP
// tracer provider. Call the returned shutdown func during graceful shutdown.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	ratio := cfg.SampleRatio
	if ratio < 0 || ratio > 1 {
		ratio = 1
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithTimeout(3*time.Second),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
