package model

type Doctor struct {
	ID       string
	ClinicID string
	FullName string
	IsActive bool
	// RegistrationPrefix comes from the doctor's clinic and prefixes the
	// registration numbers of patients created through this doctor.
	RegistrationPrefix string
}
