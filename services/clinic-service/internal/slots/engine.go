package slots

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/store"
)

const DateLayout = "2006-01-02"

// Engine derives the bookable slots of a doctor's day from their weekly
// availability and existing appointments. Dates and times of day are read in
// the clinic's location.
type Engine struct {
	availability store.AvailabilityStore
	appointments store.AppointmentReader
	doctors      store.DoctorStore
	loc          *time.Location
	now          func() time.Time
	tracer       trace.Tracer
}

type Option func(*Engine)

// WithDoctors makes inactive and unknown doctors unavailable on every day.
func WithDoctors(doctors store.DoctorStore) Option {
	return func(e *Engine) { e.doctors = doctors }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(availability store.AvailabilityStore, appointments store.AppointmentReader, loc *time.Location, opts ...Option) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	e := &Engine{
		availability: availability,
		appointments: appointments,
		loc:          loc,
		now:          time.Now,
		tracer:       otel.Tracer("clinic-service/slots"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Location() *time.Location { return e.loc }

// Now is the current instant in the clinic's location.
func (e *Engine) Now() time.Time { return e.now().In(e.loc) }

// ParseDate parses YYYY-MM-DD into midnight of that date in the clinic's location.
func (e *Engine) ParseDate(date string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), e.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", model.ErrInvalidArgument, date)
	}
	return day, nil
}

// DayAvailability returns the doctor's configuration for day's weekday.
// A missing row and an inactive row both yield model.ErrDayUnavailable; an
// active row that cannot produce slots yields model.ErrInvalidConfiguration.
func (e *Engine) DayAvailability(ctx context.Context, doctorID string, day time.Time) (model.WeeklyAvailability, error) {
	weekday := day.Weekday()
	if e.doctors != nil {
		doc, err := e.doctors.GetDoctor(ctx, doctorID)
		if errors.Is(err, model.ErrNotFound) || (err == nil && !doc.IsActive) {
			return model.WeeklyAvailability{}, fmt.Errorf("%w: doctor %s is not active", model.ErrDayUnavailable, doctorID)
		}
		if err != nil {
			return model.WeeklyAvailability{}, &model.PersistenceError{Op: "get doctor", Err: err}
		}
	}
	row, ok, err := e.availability.GetWeeklyAvailability(ctx, doctorID, weekday)
	if err != nil {
		return model.WeeklyAvailability{}, &model.PersistenceError{Op: "get weekly availability", Err: err}
	}
	if !ok || !row.IsActive {
		return model.WeeklyAvailability{}, fmt.Errorf("%w: %s", model.ErrDayUnavailable, weekday)
	}
	if err := row.Validate(); err != nil {
		return model.WeeklyAvailability{}, err
	}
	return row, nil
}

// AvailableSlots lists the free HH:MM slot starts of doctorID on date, in
// ascending order. Days without availability give an empty list. Slots
// already taken by a non-cancelled appointment starting at the same HH:MM are
// removed, and when date is today so is every slot at or before the current
// minute.
func (e *Engine) AvailableSlots(ctx context.Context, doctorID, date string) (slots []string, err error) {
	ctx, span := e.tracer.Start(ctx, "slots.AvailableSlots", trace.WithAttributes(
		attribute.String("doctor.id", doctorID),
		attribute.String("slots.date", date),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("slots.count", len(slots)))
		span.End()
	}()

	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return nil, fmt.Errorf("%w: doctor_id is required", model.ErrInvalidArgument)
	}
	day, err := e.ParseDate(date)
	if err != nil {
		return nil, err
	}

	row, err := e.DayAvailability(ctx, doctorID, day)
	if errors.Is(err, model.ErrDayUnavailable) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	candidates, err := Generate(row.StartTime, row.EndTime, row.SlotDurationMinutes)
	if err != nil {
		return nil, err
	}
	candidates = e.existing(candidates, day)

	booked, err := e.bookedTimes(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}

	var cutoff *model.ClockTime
	if now := e.Now(); sameDate(now, day) {
		c := model.ClockOf(now)
		cutoff = &c
	}

	free := Filter(candidates, booked, cutoff)
	slots = make([]string, len(free))
	for i, c := range free {
		slots[i] = c.String()
	}
	return slots, nil
}

// bookedTimes collects the HH:MM of non-cancelled appointments starting
// between 00:00:00 and 23:59:59 of day.
func (e *Engine) bookedTimes(ctx context.Context, doctorID string, day time.Time) (map[model.ClockTime]struct{}, error) {
	from := day
	to := day.AddDate(0, 0, 1).Add(-time.Second)
	appts, err := e.appointments.ListNonCancelledAppointments(ctx, doctorID, from, to)
	if err != nil {
		return nil, &model.PersistenceError{Op: "list appointments", Err: err}
	}

	booked := make(map[model.ClockTime]struct{}, len(appts))
	for _, a := range appts {
		if a.Status == model.StatusCancelled {
			continue
		}
		booked[model.ClockOf(a.StartTime.In(e.loc))] = struct{}{}
	}
	return booked, nil
}

// existing drops the times of day that a daylight-saving jump skips on day.
func (e *Engine) existing(candidates []model.ClockTime, day time.Time) []model.ClockTime {
	out := candidates[:0]
	for _, c := range candidates {
		if c.ExistsOn(day, e.loc) {
			out = append(out, c)
		}
	}
	return out
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
