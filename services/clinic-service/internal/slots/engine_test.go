package slots

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/clinicflow/clinicflow/services/clinic-service/internal/memstore"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/store"
)

// 2026-03-09 is a Monday.
const monday = "2026-03-09"

func newEngine(t *testing.T, now time.Time) (*Engine, *memstore.Store, model.Doctor) {
	t.Helper()
	st := memstore.New()
	doc := st.AddDoctor(model.Doctor{ClinicID: "clinic-1", FullName: "Dr. Rahman", IsActive: true})
	st.SetAvailability(model.WeeklyAvailability{
		DoctorID:            doc.ID,
		DayOfWeek:           time.Monday,
		StartTime:           clock(t, "10:00"),
		EndTime:             clock(t, "11:00"),
		SlotDurationMinutes: 20,
		IsActive:            true,
	})
	e := NewEngine(st, st, time.UTC, WithClock(func() time.Time { return now }))
	return e, st, doc
}

func at(t *testing.T, date, hhmm string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", date+" "+hhmm, time.UTC)
	if err != nil {
		t.Fatalf("parse %s %s: %v", date, hhmm, err)
	}
	return ts
}

func TestAvailableSlots_OtherDay(t *testing.T) {
	e, _, doc := newEngine(t, at(t, "2026-03-01", "15:00"))
	got, err := e.AvailableSlots(context.Background(), doc.ID, monday)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if want := []string{"10:00", "10:20", "10:40"}; !equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAvailableSlots_TodayBeforeOpening(t *testing.T) {
	e, _, doc := newEngine(t, at(t, monday, "09:15"))
	got, err := e.AvailableSlots(context.Background(), doc.ID, monday)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if want := []string{"10:00", "10:20", "10:40"}; !equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAvailableSlots_TodayDropsPastSlots(t *testing.T) {
	e, _, doc := newEngine(t, at(t, monday, "10:20"))
	got, err := e.AvailableSlots(context.Background(), doc.ID, monday)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if want := []string{"10:40"}; !equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAvailableSlots_PastDateHasNoTimeFilter(t *testing.T) {
	e, _, doc := newEngine(t, at(t, "2026-03-20", "23:59"))
	got, err := e.AvailableSlots(context.Background(), doc.ID, monday)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 slots, got %v", got)
	}
}

func TestAvailableSlots_InactiveRow(t *testing.T) {
	e, st, doc := newEngine(t, at(t, "2026-03-01", "08:00"))
	st.SetAvailability(model.WeeklyAvailability{DoctorID: doc.ID, DayOfWeek: time.Monday, SlotDurationMinutes: -5})
	got, err := e.AvailableSlots(context.Background(), doc.ID, monday)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
}

func TestAvailableSlots_AbsentRowMeansUnavailable(t *testing.T) {
	e, _, doc := newEngine(t, at(t, "2026-03-01", "08:00"))
	got, err := e.AvailableSlots(context.Background(), doc.ID, "2026-03-10")
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no Tuesday slots, got %v", got)
	}
}

func TestAvailableSlots_BookedAndCancelled(t *testing.T) {
	e, st, doc := newEngine(t, at(t, "2026-03-01", "08:00"))
	appt := st.AddAppointment(model.Appointment{
		ClinicID:  doc.ClinicID,
		DoctorID:  doc.ID,
		StartTime: at(t, monday, "10:20"),
		EndTime:   at(t, monday, "10:40"),
		Status:    model.StatusBooked,
	})

	got, err := e.AvailableSlots(context.Background(), doc.ID, monday)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if want := []string{"10:00", "10:40"}; !equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	err = st.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.CancelAppointment(ctx, doc.ClinicID, appt.ID, "patient request", at(t, "2026-03-01", "09:00"))
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, err = e.AvailableSlots(context.Background(), doc.ID, monday)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if want := []string{"10:00", "10:20", "10:40"}; !equal(got, want) {
		t.Fatalf("expected %v after cancel, got %v", want, got)
	}
}

func TestAvailableSlots_ClinicTimezone(t *testing.T) {
	loc := time.FixedZone("clinic", 6*3600)
	st := memstore.New()
	doc := st.AddDoctor(model.Doctor{ClinicID: "clinic-1"})
	st.SetAvailability(model.WeeklyAvailability{
		DoctorID: doc.ID, DayOfWeek: time.Monday,
		StartTime: clock(t, "10:00"), EndTime: clock(t, "11:00"), SlotDurationMinutes: 20, IsActive: true,
	})
	// 10:20 in the clinic is 04:20 UTC.
	st.AddAppointment(model.Appointment{
		DoctorID: doc.ID, Status: model.StatusBooked,
		StartTime: time.Date(2026, 3, 9, 4, 20, 0, 0, time.UTC),
	})
	// 04:05 UTC is 10:05 in the clinic on the same Monday.
	now := time.Date(2026, 3, 9, 4, 5, 0, 0, time.UTC)
	e := NewEngine(st, st, loc, WithClock(func() time.Time { return now }))

	got, err := e.AvailableSlots(context.Background(), doc.ID, monday)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if want := []string{"10:40"}; !equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAvailableSlots_Idempotent(t *testing.T) {
	e, _, doc := newEngine(t, at(t, monday, "09:00"))
	first, err := e.AvailableSlots(context.Background(), doc.ID, monday)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	second, err := e.AvailableSlots(context.Background(), doc.ID, monday)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if !equal(first, second) {
		t.Fatalf("expected identical results, got %v and %v", first, second)
	}
}

func TestAvailableSlots_Errors(t *testing.T) {
	e, st, doc := newEngine(t, at(t, "2026-03-01", "08:00"))

	for _, date := range []string{"", "09-03-2026", "2026-02-30"} {
		if _, err := e.AvailableSlots(context.Background(), doc.ID, date); !errors.Is(err, model.ErrInvalidArgument) {
			t.Fatalf("date %q: expected ErrInvalidArgument, got %v", date, err)
		}
	}
	if _, err := e.AvailableSlots(context.Background(), " ", monday); !errors.Is(err, model.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty doctor, got %v", err)
	}

	st.SetAvailability(model.WeeklyAvailability{
		DoctorID: doc.ID, DayOfWeek: time.Monday,
		StartTime: clock(t, "10:00"), EndTime: clock(t, "11:00"), IsActive: true,
	})
	if _, err := e.AvailableSlots(context.Background(), doc.ID, monday); !errors.Is(err, model.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestAvailableSlots_SkipsDaylightSavingGap(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	st := memstore.New()
	doc := st.AddDoctor(model.Doctor{ClinicID: "clinic-1", IsActive: true})
	// 2026-03-08 is a Sunday; New York clocks jump from 02:00 to 03:00.
	st.SetAvailability(model.WeeklyAvailability{
		DoctorID: doc.ID, DayOfWeek: time.Sunday,
		StartTime: clock(t, "01:00"), EndTime: clock(t, "04:00"), SlotDurationMinutes: 30, IsActive: true,
	})
	st.AddAppointment(model.Appointment{
		DoctorID: doc.ID, Status: model.StatusBooked,
		StartTime: time.Date(2026, 3, 8, 1, 30, 0, 0, loc),
	})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, loc)
	e := NewEngine(st, st, loc, WithClock(func() time.Time { return now }))

	got, err := e.AvailableSlots(context.Background(), doc.ID, "2026-03-08")
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if want := []string{"01:00", "03:00", "03:30"}; !equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAvailableSlots_InactiveDoctor(t *testing.T) {
	st := memstore.New()
	doc := st.AddDoctor(model.Doctor{ClinicID: "clinic-1", IsActive: false})
	st.SetAvailability(model.WeeklyAvailability{
		DoctorID: doc.ID, DayOfWeek: time.Monday,
		StartTime: clock(t, "10:00"), EndTime: clock(t, "11:00"), SlotDurationMinutes: 20, IsActive: true,
	})
	now := at(t, "2026-03-01", "08:00")
	e := NewEngine(st, st, time.UTC, WithClock(func() time.Time { return now }), WithDoctors(st))

	got, err := e.AvailableSlots(context.Background(), doc.ID, monday)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no slots for an inactive doctor, got %v", got)
	}
	if _, err := e.DayAvailability(context.Background(), doc.ID, at(t, monday, "00:00")); !errors.Is(err, model.ErrDayUnavailable) {
		t.Fatalf("expected ErrDayUnavailable, got %v", err)
	}
}
