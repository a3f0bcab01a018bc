// Package booking turns a chosen slot into a durable appointment and owns the
// appointment status transitions.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/outbox"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/slots"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/store"
)

// WalkInDuration is the fixed length of a walk-in appointment.
const WalkInDuration = 30 * time.Minute

type BookingRequest struct {
	// ClinicID, when set, must match the doctor's clinic.
	ClinicID        string
	DoctorID        string
	Date            string
	Time            string
	PatientFullName string
	PatientPhone    string
	// AppointmentType defaults to online.
	AppointmentType model.AppointmentType
}

// WalkInRequest registers a patient who is already in the clinic. Date and
// Time default to the current minute.
type WalkInRequest struct {
	ClinicID        string
	DoctorID        string
	Date            string
	Time            string
	PatientFullName string
	PatientPhone    string
}

type BookingResult struct {
	AppointmentID  string
	PatientID      string
	PatientCreated bool
	StartTime      time.Time
	EndTime        time.Time
}

type Coordinator struct {
	store      store.Store
	engine     *slots.Engine
	policy     MatchPolicy
	regNumbers RegistrationNumbers
	logger     *slog.Logger
	tracer     trace.Tracer
}

type Option func(*Coordinator)

func WithMatchPolicy(p MatchPolicy) Option {
	return func(c *Coordinator) { c.policy = p }
}

func WithRegistrationNumbers(fn RegistrationNumbers) Option {
	return func(c *Coordinator) { c.regNumbers = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

func NewCoordinator(st store.Store, engine *slots.Engine, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:      st,
		engine:     engine,
		policy:     MatchFullName,
		regNumbers: RandomRegistrationNumber,
		logger:     slog.Default(),
		tracer:     otel.Tracer("clinic-service/booking"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Book creates a booked appointment for the requested slot. The day's slot
// duration is looked up again rather than trusted from the caller. Patient
// resolution, the appointment insert and their events share one transaction
// that also holds a lock on (doctor, start), so a second booking of the same
// slot fails with model.ErrSlotConflict.
func (c *Coordinator) Book(ctx context.Context, req BookingRequest) (res BookingResult, err error) {
	ctx, span := c.tracer.Start(ctx, "booking.Book", trace.WithAttributes(
		attribute.String("doctor.id", req.DoctorID),
		attribute.String("booking.date", req.Date),
		attribute.String("booking.time", req.Time),
	))
	defer func() { endSpan(span, err) }()

	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.PatientFullName = strings.TrimSpace(req.PatientFullName)
	req.PatientPhone = strings.TrimSpace(req.PatientPhone)
	if req.DoctorID == "" {
		return BookingResult{}, fmt.Errorf("%w: doctor_id is required", model.ErrInvalidArgument)
	}
	if req.PatientFullName == "" {
		return BookingResult{}, fmt.Errorf("%w: patient full name is required", model.ErrInvalidArgument)
	}
	if req.AppointmentType == "" {
		req.AppointmentType = model.TypeOnline
	}
	if !req.AppointmentType.Valid() || req.AppointmentType == model.TypeWalkIn {
		return BookingResult{}, fmt.Errorf("%w: appointment type %q cannot be booked", model.ErrInvalidArgument, req.AppointmentType)
	}
	day, err := c.engine.ParseDate(req.Date)
	if err != nil {
		return BookingResult{}, err
	}
	slot, err := model.ParseClock(strings.TrimSpace(req.Time))
	if err != nil {
		return BookingResult{}, err
	}

	doc, err := c.doctor(ctx, req.ClinicID, req.DoctorID)
	if err != nil {
		return BookingResult{}, err
	}
	row, err := c.engine.DayAvailability(ctx, doc.ID, day)
	if err != nil {
		return BookingResult{}, err
	}
	if !onGrid(row, slot) {
		return BookingResult{}, fmt.Errorf("%w: %s is not a slot between %s and %s", model.ErrInvalidArgument, slot, row.StartTime, row.EndTime)
	}
	if !slot.ExistsOn(day, c.engine.Location()) {
		return BookingResult{}, fmt.Errorf("%w: %s does not occur on %s in %s", model.ErrInvalidArgument, slot, req.Date, c.engine.Location())
	}

	start := slot.On(day, c.engine.Location())
	appt := model.Appointment{
		ClinicID:        doc.ClinicID,
		DoctorID:        doc.ID,
		StartTime:       start,
		EndTime:         start.Add(time.Duration(row.SlotDurationMinutes) * time.Minute),
		Status:          model.StatusBooked,
		AppointmentType: req.AppointmentType,
	}

	res, err = c.create(ctx, doc, appt, req.PatientFullName, req.PatientPhone, true)
	if err != nil {
		return BookingResult{}, err
	}
	c.logger.Info("appointment booked",
		"appointment_id", res.AppointmentID,
		"doctor_id", doc.ID,
		"patient_id", res.PatientID,
		"patient_created", res.PatientCreated,
		"start_time", res.StartTime,
	)
	return res, nil
}

// RegisterWalkIn records an appointment that is completed on creation. It
// does not consult availability or existing bookings.
func (c *Coordinator) RegisterWalkIn(ctx context.Context, req WalkInRequest) (res BookingResult, err error) {
	ctx, span := c.tracer.Start(ctx, "booking.RegisterWalkIn", trace.WithAttributes(
		attribute.String("doctor.id", req.DoctorID),
	))
	defer func() { endSpan(span, err) }()

	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.PatientFullName = strings.TrimSpace(req.PatientFullName)
	req.PatientPhone = strings.TrimSpace(req.PatientPhone)
	if req.DoctorID == "" {
		return BookingResult{}, fmt.Errorf("%w: doctor_id is required", model.ErrInvalidArgument)
	}
	if req.PatientFullName == "" {
		return BookingResult{}, fmt.Errorf("%w: patient full name is required", model.ErrInvalidArgument)
	}
	start, err := c.walkInStart(req.Date, req.Time)
	if err != nil {
		return BookingResult{}, err
	}

	doc, err := c.doctor(ctx, req.ClinicID, req.DoctorID)
	if err != nil {
		return BookingResult{}, err
	}
	now := c.engine.Now()
	appt := model.Appointment{
		ClinicID:        doc.ClinicID,
		DoctorID:        doc.ID,
		StartTime:       start,
		EndTime:         start.Add(WalkInDuration),
		Status:          model.StatusCompleted,
		AppointmentType: model.TypeWalkIn,
		CompletedAt:     &now,
	}
	res, err = c.create(ctx, doc, appt, req.PatientFullName, req.PatientPhone, false)
	if err != nil {
		return BookingResult{}, err
	}
	c.logger.Info("walk-in registered",
		"appointment_id", res.AppointmentID,
		"doctor_id", doc.ID,
		"patient_id", res.PatientID,
	)
	return res, nil
}

// Cancel moves a booked appointment to cancelled. Cancelling an already
// cancelled appointment is a no-op.
func (c *Coordinator) Cancel(ctx context.Context, clinicID, appointmentID, reason string) (appt model.Appointment, err error) {
	ctx, span := c.tracer.Start(ctx, "booking.Cancel", trace.WithAttributes(
		attribute.String("appointment.id", appointmentID),
	))
	defer func() { endSpan(span, err) }()

	return c.transition(ctx, clinicID, appointmentID, model.StatusCancelled, func(ctx context.Context, tx store.Tx, a *model.Appointment, at time.Time) error {
		reason = strings.TrimSpace(reason)
		if err := tx.CancelAppointment(ctx, clinicID, a.ID, reason, at); err != nil {
			return persistence("cancel appointment", err)
		}
		a.Status = model.StatusCancelled
		a.CancelReason = reason
		a.CancelledAt = &at
		return enqueueAppointment(ctx, tx, outbox.EventAppointmentCancelled, *a, at)
	})
}

// Complete moves a booked appointment to completed, typically once a
// prescription has been written for it. Completing twice is a no-op.
func (c *Coordinator) Complete(ctx context.Context, clinicID, appointmentID string) (appt model.Appointment, err error) {
	ctx, span := c.tracer.Start(ctx, "booking.Complete", trace.WithAttributes(
		attribute.String("appointment.id", appointmentID),
	))
	defer func() { endSpan(span, err) }()

	return c.transition(ctx, clinicID, appointmentID, model.StatusCompleted, func(ctx context.Context, tx store.Tx, a *model.Appointment, at time.Time) error {
		if err := tx.CompleteAppointment(ctx, clinicID, a.ID, at); err != nil {
			return persistence("complete appointment", err)
		}
		a.Status = model.StatusCompleted
		a.CompletedAt = &at
		return enqueueAppointment(ctx, tx, outbox.EventAppointmentCompleted, *a, at)
	})
}

// Appointments lists the clinic's appointments starting on date, optionally
// for one doctor.
func (c *Coordinator) Appointments(ctx context.Context, clinicID, doctorID, date string) ([]model.Appointment, error) {
	if strings.TrimSpace(clinicID) == "" {
		return nil, fmt.Errorf("%w: clinic_id is required", model.ErrInvalidArgument)
	}
	day, err := c.engine.ParseDate(date)
	if err != nil {
		return nil, err
	}
	appts, err := c.store.ListAppointments(ctx, clinicID, strings.TrimSpace(doctorID), day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, persistence("list appointments", err)
	}
	return appts, nil
}

type transitionFunc func(ctx context.Context, tx store.Tx, a *model.Appointment, at time.Time) error

func (c *Coordinator) transition(ctx context.Context, clinicID, appointmentID string, target model.AppointmentStatus, apply transitionFunc) (model.Appointment, error) {
	clinicID = strings.TrimSpace(clinicID)
	appointmentID = strings.TrimSpace(appointmentID)
	if clinicID == "" || appointmentID == "" {
		return model.Appointment{}, fmt.Errorf("%w: clinic_id and appointment_id are required", model.ErrInvalidArgument)
	}

	var out model.Appointment
	err := c.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		a, err := tx.GetAppointmentForUpdate(ctx, clinicID, appointmentID)
		if err != nil {
			return persistence("get appointment", err)
		}
		switch a.Status {
		case target:
			out = a
			return nil
		case model.StatusBooked:
		default:
			return fmt.Errorf("%w: %s appointment cannot become %s", model.ErrInvalidTransition, a.Status, target)
		}
		if err := apply(ctx, tx, &a, c.engine.Now()); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return model.Appointment{}, persistence("commit "+string(target), err)
	}
	c.logger.Info("appointment status changed", "appointment_id", out.ID, "status", out.Status)
	return out, nil
}

func (c *Coordinator) create(ctx context.Context, doc model.Doctor, appt model.Appointment, fullName, phone string, exclusive bool) (BookingResult, error) {
	var res BookingResult
	err := c.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if exclusive {
			if err := tx.LockSlot(ctx, appt.DoctorID, appt.StartTime); err != nil {
				return persistence("lock slot", err)
			}
			taken, err := tx.HasActiveAppointmentAt(ctx, appt.DoctorID, appt.StartTime)
			if err != nil {
				return persistence("check slot", err)
			}
			if taken {
				return fmt.Errorf("%w: %s at %s", model.ErrSlotConflict, appt.DoctorID, appt.StartTime.Format(time.RFC3339))
			}
		}

		now := c.engine.Now()
		patient, created, err := c.resolvePatient(ctx, tx, doc, fullName, phone)
		if err != nil {
			return err
		}
		if created {
			if err := enqueuePatient(ctx, tx, patient, now); err != nil {
				return persistence("enqueue patient event", err)
			}
		}

		appt.PatientID = patient.ID
		id, err := tx.CreateAppointment(ctx, &appt)
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: %s at %s", model.ErrSlotConflict, appt.DoctorID, appt.StartTime.Format(time.RFC3339))
		}
		if err != nil {
			return persistence("create appointment", err)
		}
		appt.ID = id

		eventType := outbox.EventAppointmentBooked
		if appt.Status == model.StatusCompleted {
			eventType = outbox.EventAppointmentCompleted
		}
		if err := enqueueAppointment(ctx, tx, eventType, appt, now); err != nil {
			return persistence("enqueue appointment event", err)
		}

		res = BookingResult{
			AppointmentID:  id,
			PatientID:      patient.ID,
			PatientCreated: created,
			StartTime:      appt.StartTime,
			EndTime:        appt.EndTime,
		}
		return nil
	})
	if err != nil {
		return BookingResult{}, persistence("commit booking", err)
	}
	return res, nil
}

func (c *Coordinator) resolvePatient(ctx context.Context, tx store.Tx, doc model.Doctor, fullName, phone string) (model.Patient, bool, error) {
	existing, ok, err := c.policy.find(ctx, tx, doc.ClinicID, fullName, phone)
	if err != nil {
		return model.Patient{}, false, persistence("find patient", err)
	}
	if ok {
		return existing, false, nil
	}

	p := model.Patient{
		ClinicID:           doc.ClinicID,
		FullName:           fullName,
		DOB:                model.PlaceholderDOB,
		Gender:             model.PlaceholderGender,
		Phone:              phone,
		RegistrationNumber: c.regNumbers(registrationPrefix(doc)),
	}
	id, err := tx.CreatePatient(ctx, &p)
	if err != nil {
		return model.Patient{}, false, persistence("create patient", err)
	}
	p.ID = id
	return p, true, nil
}

func (c *Coordinator) doctor(ctx context.Context, clinicID, doctorID string) (model.Doctor, error) {
	doc, err := c.store.GetDoctor(ctx, doctorID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Doctor{}, fmt.Errorf("%w: doctor %s", model.ErrNotFound, doctorID)
	}
	if err != nil {
		return model.Doctor{}, persistence("get doctor", err)
	}
	if clinicID = strings.TrimSpace(clinicID); clinicID != "" && doc.ClinicID != clinicID {
		return model.Doctor{}, fmt.Errorf("%w: doctor %s", model.ErrNotFound, doctorID)
	}
	if !doc.IsActive {
		return model.Doctor{}, fmt.Errorf("%w: doctor %s is not active", model.ErrNotFound, doctorID)
	}
	return doc, nil
}

func (c *Coordinator) walkInStart(date, hhmm string) (time.Time, error) {
	now := c.engine.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.engine.Location())
	if strings.TrimSpace(date) != "" {
		d, err := c.engine.ParseDate(date)
		if err != nil {
			return time.Time{}, err
		}
		day = d
	}
	clock := model.ClockOf(now)
	if strings.TrimSpace(hhmm) != "" {
		parsed, err := model.ParseClock(strings.TrimSpace(hhmm))
		if err != nil {
			return time.Time{}, err
		}
		if !parsed.ExistsOn(day, c.engine.Location()) {
			return time.Time{}, fmt.Errorf("%w: %s does not occur on %s in %s", model.ErrInvalidArgument, parsed, day.Format(slots.DateLayout), c.engine.Location())
		}
		clock = parsed
	}
	return clock.On(day, c.engine.Location()), nil
}

func onGrid(row model.WeeklyAvailability, slot model.ClockTime) bool {
	if slot < row.StartTime || slot >= row.EndTime {
		return false
	}
	return int(slot-row.StartTime)%row.SlotDurationMinutes == 0
}

var domainErrors = []error{
	model.ErrInvalidArgument,
	model.ErrInvalidConfiguration,
	model.ErrDayUnavailable,
	model.ErrSlotConflict,
	model.ErrNotFound,
	model.ErrInvalidTransition,
}

// persistence wraps store failures in *model.PersistenceError and passes
// domain errors and already wrapped failures through unchanged.
func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *model.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return &model.PersistenceError{Op: op, Err: err}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
