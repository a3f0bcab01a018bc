package model

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:05")
	if err != nil {
		t.Fatalf("ParseClock: %v", err)
	}
	if c != ClockTime(9*60+5) || c.String() != "09:05" {
		t.Fatalf("unexpected clock %d (%s)", c, c)
	}

	for _, bad := range []string{"", "9:05", "24:00", "12:60", "ab:cd", "12-30", "12:305"} {
		if _, err := ParseClock(bad); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument for %q, got %v", bad, err)
		}
	}
}

func TestClockOn(t *testing.T) {
	loc := time.FixedZone("clinic", 6*3600)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)
	got := ClockTime(14*60+30).On(day, loc)
	want := time.Date(2026, 3, 10, 14, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if ClockOf(got) != ClockTime(14*60+30) {
		t.Fatalf("unexpected ClockOf %s", ClockOf(got))
	}
}

func TestWeeklyAvailabilityValidate(t *testing.T) {
	ok := WeeklyAvailability{DayOfWeek: time.Monday, StartTime: 600, EndTime: 660, SlotDurationMinutes: 20, IsActive: true}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	zero := ok
	zero.SlotDurationMinutes = 0
	if err := zero.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}

	inverted := ok
	inverted.StartTime, inverted.EndTime = 660, 600
	if err := inverted.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}

	inactive := zero
	inactive.IsActive = false
	if err := inactive.Validate(); err != nil {
		t.Fatalf("inactive rows are not checked, got %v", err)
	}

	badDay := ok
	badDay.DayOfWeek = 7
	if err := badDay.Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestPersistenceErrorUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := error(&PersistenceError{Op: "create appointment", Err: inner})
	if !errors.Is(err, inner) || err.Error() != "create appointment: connection reset" {
		t.Fatalf("unexpected error %v", err)
	}
}
