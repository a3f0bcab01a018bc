package model

import "time"

// Placeholder identity fields written for patients created from a booking,
// where only a name (and maybe a phone) is known.
const (
	PlaceholderDOB    = "1990-01-01"
	PlaceholderGender = "Other"
)

type Patient struct {
	ID                 string
	ClinicID           string
	FullName           string
	DOB                string
	Gender             string
	Address            string
	Phone              string
	RegistrationNumber string
	CreatedAt          time.Time
}
