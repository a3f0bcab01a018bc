// Package store declares the persistence boundary of the clinic core. The
// Postgres implementation lives in storage and the in-memory one in
// memstore; slots, booking and schedule depend only on these interfaces.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/outbox"
)

// ErrConflict is returned by writes rejected by a uniqueness rule, such as a
// second booked appointment for the same doctor and start time.
var ErrConflict = errors.New("store: conflicting write")

type AvailabilityStore interface {
	// GetWeeklyAvailability reports ok=false when the doctor has no row for day.
	GetWeeklyAvailability(ctx context.Context, doctorID string, day time.Weekday) (model.WeeklyAvailability, bool, error)
	ListWeeklyAvailability(ctx context.Context, doctorID string) ([]model.WeeklyAvailability, error)
}

type AppointmentReader interface {
	// ListNonCancelledAppointments returns appointments whose start time is
	// within [from, to], both inclusive.
	ListNonCancelledAppointments(ctx context.Context, doctorID string, from, to time.Time) ([]model.Appointment, error)
	// ListAppointments returns every appointment of the clinic (any status)
	// starting within [from, to), optionally narrowed to one doctor.
	ListAppointments(ctx context.Context, clinicID, doctorID string, from, to time.Time) ([]model.Appointment, error)
}

type DoctorStore interface {
	// GetDoctor returns model.ErrNotFound for unknown doctors.
	GetDoctor(ctx context.Context, doctorID string) (model.Doctor, error)
}

// Tx is the write side, only reachable inside Store.InTx so that patient
// creation, appointment creation and their events commit together.
type Tx interface {
	ReplaceWeeklyAvailability(ctx context.Context, doctorID string, rows []model.WeeklyAvailability) error

	// LockSlot serializes bookings of the same doctor and start time until
	// the transaction ends.
	LockSlot(ctx context.Context, doctorID string, start time.Time) error
	HasActiveAppointmentAt(ctx context.Context, doctorID string, start time.Time) (bool, error)

	FindPatientByFullName(ctx context.Context, clinicID, fullName string) (model.Patient, bool, error)
	FindPatientByNameAndPhone(ctx context.Context, clinicID, fullName, phone string) (model.Patient, bool, error)
	CreatePatient(ctx context.Context, p *model.Patient) (string, error)

	CreateAppointment(ctx context.Context, appt *model.Appointment) (string, error)
	GetAppointmentForUpdate(ctx context.Context, clinicID, appointmentID string) (model.Appointment, error)
	CancelAppointment(ctx context.Context, clinicID, appointmentID, reason string, at time.Time) error
	CompleteAppointment(ctx context.Context, clinicID, appointmentID string, at time.Time) error

	EnqueueEvent(ctx context.Context, evt outbox.Event) error
}

type Store interface {
	AvailabilityStore
	AppointmentReader
	DoctorStore
	// InTx commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
