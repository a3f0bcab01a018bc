package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (one event type per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	EventAppointmentBooked    = "appointment.booked.v1"
	EventAppointmentCancelled = "appointment.cancelled.v1"
	EventAppointmentCompleted = "appointment.completed.v1"
	EventPatientRegistered    = "patient.registered.v1"
)
