package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestNewEventMessage_RoundTripsMeta(t *testing.T) {
	msg := NewEventMessage(EventMeta{EventID: "evt-1", EventType: "appointment.booked.v1"}, "appt-1", []byte(`{}`))
	if msg.Topic != "appointment.booked.v1" || string(msg.Key) != "appt-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != "appointment.booked.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestExtractEventMeta_Fallbacks(t *testing.T) {
	meta := ExtractEventMeta(kafka.Message{Topic: "prescription.created.v1", Key: []byte("rx-9")})
	if meta.EventID != "rx-9" || meta.EventType != "prescription.created.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
	if ReadyCheck("") != nil {
		t.Fatal("expected nil check without brokers")
	}
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	headers := InjectTraceHeaders(ctx, nil)
	got := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), kafka.Message{Headers: headers}))
	if got.TraceID() != traceID {
		t.Fatalf("expected trace id to survive, got %v", got.TraceID())
	}
}
