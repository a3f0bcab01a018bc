package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceCarrier is a span context in its W3C text form, flat enough to sit in
// a table row next to the data it traced. The zero value carries no trace.
type TraceCarrier struct {
	Traceparent string
	Tracestate  string
}

// CaptureTrace records the span context active in ctx.
func CaptureTrace(ctx context.Context) TraceCarrier {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceCarrier{Traceparent: carrier.Get("traceparent"), Tracestate: carrier.Get("tracestate")}
}

func (c TraceCarrier) IsZero() bool {
	return c.Traceparent == "" && c.Tracestate == ""
}

// Restore returns ctx with c as its remote parent. A zero carrier returns ctx.
func (c TraceCarrier) Restore(ctx context.Context) context.Context {
	if c.IsZero() {
		return ctx
	}
	carrier := propagation.MapCarrier{}
	if c.Traceparent != "" {
		carrier.Set("traceparent", c.Traceparent)
	}
	if c.Tracestate != "" {
		carrier.Set("tracestate", c.Tracestate)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// Columns returns the fields as nullable column values, nil when empty.
func (c TraceCarrier) Columns() (traceparent, tracestate *string) {
	return nonEmpty(c.Traceparent), nonEmpty(c.Tracestate)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
