package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clinicflow/clinicflow/libs/db"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/outbox"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/store"
)

type txRepository struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (r *txRepository) ReplaceWeeklyAvailability(ctx context.Context, doctorID string, rows []model.WeeklyAvailability) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM doctor_weekly_availability WHERE doctor_id = $1`, doctorID); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO doctor_weekly_availability
				(doctor_id, day_of_week, start_minute, end_minute, slot_duration_minutes, is_active)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, doctorID, int(row.DayOfWeek), int(row.StartTime), int(row.EndTime), row.SlotDurationMinutes, row.IsActive)
	}
	return r.tx.SendBatch(ctx, batch).Close()
}

// LockSlot takes a transaction-scoped advisory lock keyed by doctor and
// start instant.
func (r *txRepository) LockSlot(ctx context.Context, doctorID string, start time.Time) error {
	_, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, slotLockKey(doctorID, start))
	return err
}

func slotLockKey(doctorID string, start time.Time) string {
	return "slot:" + doctorID + ":" + start.UTC().Format(time.RFC3339)
}

func (r *txRepository) HasActiveAppointmentAt(ctx context.Context, doctorID string, start time.Time) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND start_time = $2 AND status <> 'cancelled'
		)
	`, doctorID, start).Scan(&exists)
	return exists, err
}

func (r *txRepository) FindPatientByFullName(ctx context.Context, clinicID, fullName string) (model.Patient, bool, error) {
	return r.findPatient(ctx, `
		SELECT id, clinic_id, full_name, dob::text, gender, address, COALESCE(phone, ''), registration_number, created_at
		FROM patients
		WHERE clinic_id = $1 AND full_name = $2
		ORDER BY created_at, id
		LIMIT 1
	`, clinicID, fullName)
}

func (r *txRepository) FindPatientByNameAndPhone(ctx context.Context, clinicID, fullName, phone string) (model.Patient, bool, error) {
	return r.findPatient(ctx, `
		SELECT id, clinic_id, full_name, dob::text, gender, address, COALESCE(phone, ''), registration_number, created_at
		FROM patients
		WHERE clinic_id = $1 AND full_name = $2 AND COALESCE(phone, '') = $3
		ORDER BY created_at, id
		LIMIT 1
	`, clinicID, fullName, phone)
}

func (r *txRepository) findPatient(ctx context.Context, sql string, args ...any) (model.Patient, bool, error) {
	var p model.Patient
	err := r.tx.QueryRow(ctx, sql, args...).Scan(
		&p.ID, &p.ClinicID, &p.FullName, &p.DOB, &p.Gender, &p.Address, &p.Phone, &p.RegistrationNumber, &p.CreatedAt,
	)
	if db.IsNotFound(err) {
		return model.Patient{}, false, nil
	}
	if err != nil {
		return model.Patient{}, false, err
	}
	return p, true, nil
}

func (r *txRepository) CreatePatient(ctx context.Context, p *model.Patient) (string, error) {
	var id string
	err := r.tx.QueryRow(ctx, `
		INSERT INTO patients (clinic_id, full_name, dob, gender, address, phone, registration_number)
		VALUES ($1, $2, $3::date, $4, $5, NULLIF($6, ''), $7)
		RETURNING id
	`, p.ClinicID, p.FullName, p.DOB, p.Gender, p.Address, p.Phone, p.RegistrationNumber).Scan(&id)
	return id, err
}

func (r *txRepository) CreateAppointment(ctx context.Context, appt *model.Appointment) (string, error) {
	var id string
	err := r.tx.QueryRow(ctx, `
		INSERT INTO appointments
			(clinic_id, doctor_id, patient_id, start_time, end_time, status, appointment_type, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, appt.ClinicID, appt.DoctorID, appt.PatientID, appt.StartTime, appt.EndTime,
		string(appt.Status), string(appt.AppointmentType), appt.CompletedAt).Scan(&id)
	if db.IsConflict(err) {
		return "", store.ErrConflict
	}
	return id, err
}

func (r *txRepository) GetAppointmentForUpdate(ctx context.Context, clinicID, appointmentID string) (model.Appointment, error) {
	if !validID(clinicID) || !validID(appointmentID) {
		return model.Appointment{}, model.ErrNotFound
	}
	appt, err := scanAppointment(r.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND clinic_id = $2
		FOR UPDATE
	`, appointmentID, clinicID))
	if err != nil {
		return model.Appointment{}, notFound(err)
	}
	return appt, nil
}

func (r *txRepository) CancelAppointment(ctx context.Context, clinicID, appointmentID, reason string, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = $3,
			cancellation_reason = NULLIF($4, '')
		WHERE id = $1 AND clinic_id = $2
	`, appointmentID, clinicID, at, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *txRepository) CompleteAppointment(ctx context.Context, clinicID, appointmentID string, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'completed',
			completed_at = $3
		WHERE id = $1 AND clinic_id = $2
	`, appointmentID, clinicID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *txRepository) EnqueueEvent(ctx context.Context, evt outbox.Event) error {
	return r.outbox.Insert(ctx, r.tx, evt)
}
