package outbox

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/clinicflow/clinicflow/libs/kafkax"
	otelx "github.com/clinicflow/clinicflow/libs/otel"
)

func TestMessage(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	msg := Message(context.Background(), Record{
		ID:      7,
		EventID: "evt-1",
		Event: Event{
			AggregateID: "appt-1",
			EventType:   EventAppointmentBooked,
			Payload:     []byte(`{"appointment_id":"appt-1"}`),
		},
		Trace: otelx.TraceCarrier{Traceparent: traceparent},
	})

	if msg.Topic != EventAppointmentBooked || string(msg.Key) != "appt-1" {
		t.Fatalf("unexpected topic/key %q %q", msg.Topic, msg.Key)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != EventAppointmentBooked {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != traceparent {
		t.Fatalf("expected traceparent header %q, got %q", traceparent, got)
	}
}

func TestMessage_NoTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	msg := Message(context.Background(), Record{EventID: "evt-2", Event: Event{AggregateID: "p-1", EventType: EventPatientRegistered}})
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != "" {
		t.Fatalf("expected no traceparent, got %q", got)
	}
}
