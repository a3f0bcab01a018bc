package model

import "time"

type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

type AppointmentType string

const (
	TypeOnline   AppointmentType = "online"
	TypeWalkIn   AppointmentType = "walk_in"
	TypeInClinic AppointmentType = "in_clinic"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case TypeOnline, TypeWalkIn, TypeInClinic:
		return true
	}
	return false
}

type Appointment struct {
	ID              string
	ClinicID        string
	DoctorID        string
	PatientID       string
	StartTime       time.Time
	EndTime         time.Time
	Status          AppointmentStatus
	AppointmentType AppointmentType
	CancelledAt     *time.Time
	CancelReason    string
	CompletedAt     *time.Time
	CreatedAt       time.Time
}
