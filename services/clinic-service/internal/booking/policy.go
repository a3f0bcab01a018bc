package booking

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/store"
)

// MatchPolicy decides when a booking reuses an existing patient record.
type MatchPolicy string

const (
	// MatchFullName reuses the first patient of the clinic whose full name is
	// exactly equal (case-sensitive) to the requested one.
	MatchFullName MatchPolicy = "full_name"
	// MatchFullNamePhone also requires the phone number to be equal.
	MatchFullNamePhone MatchPolicy = "full_name_phone"
)

func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch p := MatchPolicy(strings.TrimSpace(strings.ToLower(s))); p {
	case "", MatchFullName:
		return MatchFullName, nil
	case MatchFullNamePhone:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown patient match policy %q", model.ErrInvalidArgument, s)
	}
}

func (p MatchPolicy) find(ctx context.Context, tx store.Tx, clinicID, fullName, phone string) (model.Patient, bool, error) {
	if p == MatchFullNamePhone {
		return tx.FindPatientByNameAndPhone(ctx, clinicID, fullName, phone)
	}
	return tx.FindPatientByFullName(ctx, clinicID, fullName)
}

// WebRegistrationPrefix is used for clinics without their own prefix.
const WebRegistrationPrefix = "WEB"

// RegistrationNumbers produces a patient registration number for a prefix.
type RegistrationNumbers func(prefix string) string

// RandomRegistrationNumber returns PREFIX-NNNNNN. Numbers are not checked
// against existing patients, so collisions are possible but rare.
func RandomRegistrationNumber(prefix string) string {
	return fmt.Sprintf("%s-%06d", prefix, rand.Intn(1_000_000))
}

func registrationPrefix(doc model.Doctor) string {
	if p := strings.TrimSpace(doc.RegistrationPrefix); p != "" {
		return strings.ToUpper(p)
	}
	return WebRegistrationPrefix
}
