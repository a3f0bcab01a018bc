package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/outbox"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/store"
)

type appointmentPayload struct {
	AppointmentID   string     `json:"appointment_id"`
	ClinicID        string     `json:"clinic_id"`
	DoctorID        string     `json:"doctor_id"`
	PatientID       string     `json:"patient_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	Status          string     `json:"status"`
	AppointmentType string     `json:"appointment_type"`
	CancelReason    string     `json:"cancel_reason,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

type patientPayload struct {
	PatientID          string    `json:"patient_id"`
	ClinicID           string    `json:"clinic_id"`
	FullName           string    `json:"full_name"`
	Phone              string    `json:"phone,omitempty"`
	RegistrationNumber string    `json:"registration_number"`
	OccurredAt         time.Time `json:"occurred_at"`
}

func enqueueAppointment(ctx context.Context, tx store.Tx, eventType string, a model.Appointment, at time.Time) error {
	payload, err := json.Marshal(appointmentPayload{
		AppointmentID:   a.ID,
		ClinicID:        a.ClinicID,
		DoctorID:        a.DoctorID,
		PatientID:       a.PatientID,
		StartTime:       a.StartTime.UTC(),
		EndTime:         a.EndTime.UTC(),
		Status:          string(a.Status),
		AppointmentType: string(a.AppointmentType),
		CancelReason:    a.CancelReason,
		OccurredAt:      at.UTC(),
		CompletedAt:     a.CompletedAt,
	})
	if err != nil {
		return err
	}
	return tx.EnqueueEvent(ctx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   a.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}

func enqueuePatient(ctx context.Context, tx store.Tx, p model.Patient, at time.Time) error {
	payload, err := json.Marshal(patientPayload{
		PatientID:          p.ID,
		ClinicID:           p.ClinicID,
		FullName:           p.FullName,
		Phone:              p.Phone,
		RegistrationNumber: p.RegistrationNumber,
		OccurredAt:         at.UTC(),
	})
	if err != nil {
		return err
	}
	return tx.EnqueueEvent(ctx, outbox.Event{
		AggregateType: "patient",
		AggregateID:   p.ID,
		EventType:     outbox.EventPatientRegistered,
		Payload:       payload,
	})
}
