package model

import "errors"

var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidConfiguration = errors.New("invalid availability configuration")
	ErrDayUnavailable       = errors.New("doctor has no availability on this day")
	ErrSlotConflict         = errors.New("time slot already booked")
	ErrNotFound             = errors.New("not found")
	ErrInvalidTransition    = errors.New("invalid appointment status transition")
)

// PersistenceError wraps a store failure. The underlying message is kept so
// callers can show it; nothing is retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
