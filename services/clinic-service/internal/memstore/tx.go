package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/outbox"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/store"
)

type tx struct {
	state  *state
	events []outbox.Event
	fails  map[string]error
}

func (t *tx) fail(op string) error {
	return t.fails[op]
}

func (t *tx) ReplaceWeeklyAvailability(_ context.Context, doctorID string, rows []model.WeeklyAvailability) error {
	if err := t.fail("ReplaceWeeklyAvailability"); err != nil {
		return err
	}
	week := make(map[time.Weekday]model.WeeklyAvailability, len(rows))
	for _, row := range rows {
		row.DoctorID = doctorID
		week[row.DayOfWeek] = row
	}
	t.state.availability[doctorID] = week
	return nil
}

func (t *tx) LockSlot(context.Context, string, time.Time) error {
	return t.fail("LockSlot")
}

func (t *tx) HasActiveAppointmentAt(_ context.Context, doctorID string, start time.Time) (bool, error) {
	if err := t.fail("HasActiveAppointmentAt"); err != nil {
		return false, err
	}
	for _, a := range t.state.appointments {
		if a.DoctorID == doctorID && a.Status != model.StatusCancelled && a.StartTime.Equal(start) {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) FindPatientByFullName(_ context.Context, clinicID, fullName string) (model.Patient, bool, error) {
	if err := t.fail("FindPatientByFullName"); err != nil {
		return model.Patient{}, false, err
	}
	for _, p := range t.state.patients {
		if p.ClinicID == clinicID && p.FullName == fullName {
			return p, true, nil
		}
	}
	return model.Patient{}, false, nil
}

func (t *tx) FindPatientByNameAndPhone(_ context.Context, clinicID, fullName, phone string) (model.Patient, bool, error) {
	if err := t.fail("FindPatientByNameAndPhone"); err != nil {
		return model.Patient{}, false, err
	}
	for _, p := range t.state.patients {
		if p.ClinicID == clinicID && p.FullName == fullName && p.Phone == phone {
			return p, true, nil
		}
	}
	return model.Patient{}, false, nil
}

func (t *tx) CreatePatient(_ context.Context, p *model.Patient) (string, error) {
	if err := t.fail("CreatePatient"); err != nil {
		return "", err
	}
	rec := *p
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	t.state.patients = append(t.state.patients, rec)
	return rec.ID, nil
}

// CreateAppointment enforces one booked appointment per doctor and start
// time, like the partial unique index in Postgres.
func (t *tx) CreateAppointment(_ context.Context, appt *model.Appointment) (string, error) {
	if err := t.fail("CreateAppointment"); err != nil {
		return "", err
	}
	if appt.Status == model.StatusBooked {
		for _, a := range t.state.appointments {
			if a.DoctorID == appt.DoctorID && a.Status == model.StatusBooked && a.StartTime.Equal(appt.StartTime) {
				return "", store.ErrConflict
			}
		}
	}
	rec := *appt
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	t.state.appointments = append(t.state.appointments, rec)
	return rec.ID, nil
}

func (t *tx) find(clinicID, appointmentID string) (int, bool) {
	for i, a := range t.state.appointments {
		if a.ID == appointmentID && a.ClinicID == clinicID {
			return i, true
		}
	}
	return 0, false
}

func (t *tx) GetAppointmentForUpdate(_ context.Context, clinicID, appointmentID string) (model.Appointment, error) {
	if err := t.fail("GetAppointmentForUpdate"); err != nil {
		return model.Appointment{}, err
	}
	i, ok := t.find(clinicID, appointmentID)
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return t.state.appointments[i], nil
}

func (t *tx) CancelAppointment(_ context.Context, clinicID, appointmentID, reason string, at time.Time) error {
	if err := t.fail("CancelAppointment"); err != nil {
		return err
	}
	i, ok := t.find(clinicID, appointmentID)
	if !ok {
		return model.ErrNotFound
	}
	a := &t.state.appointments[i]
	a.Status = model.StatusCancelled
	a.CancelReason = reason
	a.CancelledAt = &at
	return nil
}

func (t *tx) CompleteAppointment(_ context.Context, clinicID, appointmentID string, at time.Time) error {
	if err := t.fail("CompleteAppointment"); err != nil {
		return err
	}
	i, ok := t.find(clinicID, appointmentID)
	if !ok {
		return model.ErrNotFound
	}
	a := &t.state.appointments[i]
	a.Status = model.StatusCompleted
	a.CompletedAt = &at
	return nil
}

func (t *tx) EnqueueEvent(_ context.Context, evt outbox.Event) error {
	if err := t.fail("EnqueueEvent"); err != nil {
		return err
	}
	t.events = append(t.events, evt)
	return nil
}
