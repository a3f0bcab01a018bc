// Package storage is the Postgres implementation of the store interfaces.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicflow/clinicflow/libs/db"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/outbox"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/store"
)

const appointmentColumns = `
	id, clinic_id, doctor_id, patient_id, start_time, end_time, status, appointment_type,
	cancelled_at, COALESCE(cancellation_reason, ''), completed_at, created_at`

type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

var _ store.Store = (*Repository)(nil)

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, outbox: r.outbox})
	})
}

func (r *Repository) GetDoctor(ctx context.Context, doctorID string) (model.Doctor, error) {
	if !validID(doctorID) {
		return model.Doctor{}, model.ErrNotFound
	}
	var d model.Doctor
	err := r.pool.QueryRow(ctx, `
		SELECT d.id, d.clinic_id, d.full_name, d.is_active, COALESCE(c.registration_prefix, '')
		FROM doctors d
		JOIN clinics c ON c.id = d.clinic_id
		WHERE d.id = $1
	`, doctorID).Scan(&d.ID, &d.ClinicID, &d.FullName, &d.IsActive, &d.RegistrationPrefix)
	if db.IsNotFound(err) {
		return model.Doctor{}, model.ErrNotFound
	}
	if err != nil {
		return model.Doctor{}, err
	}
	return d, nil
}

func (r *Repository) GetWeeklyAvailability(ctx context.Context, doctorID string, day time.Weekday) (model.WeeklyAvailability, bool, error) {
	if !validID(doctorID) {
		return model.WeeklyAvailability{}, false, nil
	}
	row, err := scanAvailability(r.pool.QueryRow(ctx, `
		SELECT doctor_id, day_of_week, start_minute, end_minute, slot_duration_minutes, is_active
		FROM doctor_weekly_availability
		WHERE doctor_id = $1 AND day_of_week = $2
	`, doctorID, int(day)))
	if db.IsNotFound(err) {
		return model.WeeklyAvailability{}, false, nil
	}
	if err != nil {
		return model.WeeklyAvailability{}, false, err
	}
	return row, true, nil
}

func (r *Repository) ListWeeklyAvailability(ctx context.Context, doctorID string) ([]model.WeeklyAvailability, error) {
	if !validID(doctorID) {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT doctor_id, day_of_week, start_minute, end_minute, slot_duration_minutes, is_active
		FROM doctor_weekly_availability
		WHERE doctor_id = $1
		ORDER BY day_of_week
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WeeklyAvailability
	for rows.Next() {
		row, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) ListNonCancelledAppointments(ctx context.Context, doctorID string, from, to time.Time) ([]model.Appointment, error) {
	if !validID(doctorID) {
		return nil, nil
	}
	return r.queryAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
			AND status <> 'cancelled'
			AND start_time >= $2
			AND start_time <= $3
		ORDER BY start_time ASC
	`, doctorID, from, to)
}

func (r *Repository) ListAppointments(ctx context.Context, clinicID, doctorID string, from, to time.Time) ([]model.Appointment, error) {
	if !validID(clinicID) || (doctorID != "" && !validID(doctorID)) {
		return nil, nil
	}
	return r.queryAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE clinic_id = $1
			AND ($2::text = '' OR doctor_id::text = $2::text)
			AND start_time >= $3
			AND start_time < $4
		ORDER BY start_time ASC
	`, clinicID, doctorID, from, to)
}

func (r *Repository) queryAppointments(ctx context.Context, sql string, args ...any) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func scanAvailability(row pgx.Row) (model.WeeklyAvailability, error) {
	var (
		a               model.WeeklyAvailability
		day, start, end int
	)
	if err := row.Scan(&a.DoctorID, &day, &start, &end, &a.SlotDurationMinutes, &a.IsActive); err != nil {
		return model.WeeklyAvailability{}, err
	}
	a.DayOfWeek = time.Weekday(day)
	a.StartTime = model.ClockTime(start)
	a.EndTime = model.ClockTime(end)
	return a, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var status, apptType string
	err := row.Scan(
		&appt.ID,
		&appt.ClinicID,
		&appt.DoctorID,
		&appt.PatientID,
		&appt.StartTime,
		&appt.EndTime,
		&status,
		&apptType,
		&appt.CancelledAt,
		&appt.CancelReason,
		&appt.CompletedAt,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.AppointmentStatus(status)
	appt.AppointmentType = model.AppointmentType(apptType)
	return appt, nil
}

// validID reports whether id can be compared with a uuid column. Other
// values cannot match any row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}
