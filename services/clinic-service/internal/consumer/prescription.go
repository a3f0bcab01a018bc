package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
)

// EventPrescriptionCreated is published when a doctor writes a prescription
// for an appointment.
const EventPrescriptionCreated = "prescription.created.v1"

type Completer interface {
	Complete(ctx context.Context, clinicID, appointmentID string) (model.Appointment, error)
}

type prescriptionCreated struct {
	ClinicID      string `json:"clinic_id"`
	AppointmentID string `json:"appointment_id"`
}

// PrescriptionHandler completes the appointment a prescription belongs to.
// Unknown appointments and appointments that can no longer be completed are
// logged and dropped.
func PrescriptionHandler(completer Completer, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt prescriptionCreated
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrPermanent, EventPrescriptionCreated, err)
		}
		if evt.ClinicID == "" || evt.AppointmentID == "" {
			return fmt.Errorf("%w: %s without clinic_id or appointment_id", ErrPermanent, EventPrescriptionCreated)
		}

		appt, err := completer.Complete(ctx, evt.ClinicID, evt.AppointmentID)
		switch {
		case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrInvalidTransition):
			logger.Warn("prescription for appointment that cannot complete", "appointment_id", evt.AppointmentID, "err", err)
			return nil
		case err != nil:
			return err
		}
		logger.Info("appointment completed by prescription", "appointment_id", appt.ID)
		return nil
	}
}
