package model

import (
	"fmt"
	"time"
)

// ClockTime is a time of day in minutes after midnight.
type ClockTime int

const minutesPerDay = 24 * 60

// ParseClock parses a 24h "HH:MM" string.
func ParseClock(s string) (ClockTime, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidArgument, s)
	}
	h, okH := twoDigits(s[0:2])
	m, okM := twoDigits(s[3:5])
	if !okH || !okM || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidArgument, s)
	}
	return ClockTime(h*60 + m), nil
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// ClockOf returns the wall-clock hour and minute of t in its own location.
func ClockOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) Valid() bool { return c >= 0 && c < minutesPerDay }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On returns the instant at this time of day on day's calendar date in loc.
func (c ClockTime) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, loc)
}

// ExistsOn reports whether this time of day occurs on day in loc. Times
// skipped by a daylight-saving jump do not.
func (c ClockTime) ExistsOn(day time.Time, loc *time.Location) bool {
	return ClockOf(c.On(day, loc)) == c
}

// WeeklyAvailability is one doctor's working hours for one weekday.
type WeeklyAvailability struct {
	DoctorID            string
	DayOfWeek           time.Weekday
	StartTime           ClockTime
	EndTime             ClockTime
	SlotDurationMinutes int
	IsActive            bool
}

// Validate checks an active row; inactive rows only need a valid weekday.
func (a WeeklyAvailability) Validate() error {
	if a.DayOfWeek < time.Sunday || a.DayOfWeek > time.Saturday {
		return fmt.Errorf("%w: day_of_week %d must be 0-6", ErrInvalidArgument, a.DayOfWeek)
	}
	if !a.IsActive {
		return nil
	}
	if a.SlotDurationMinutes <= 0 {
		return fmt.Errorf("%w: slot duration %d must be positive", ErrInvalidConfiguration, a.SlotDurationMinutes)
	}
	if !a.StartTime.Valid() || !a.EndTime.Valid() || a.StartTime >= a.EndTime {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidConfiguration, a.StartTime, a.EndTime)
	}
	return nil
}
