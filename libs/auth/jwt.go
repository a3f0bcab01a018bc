package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Staff roles recognised by the clinic APIs.
const (
	RoleOwner     = "owner"
	RoleDoctor    = "doctor"
	RoleAssistant = "assistant"
)

// Claims identify a staff member and the clinic (tenant) they act for.
type Claims struct {
	ClinicID string `json:"clinic_id"`
	Role     string `json:"role"`
	// DoctorID is set for doctor accounts so they can be limited to their
	// own schedule.
	DoctorID string `json:"doctor_id,omitempty"`
	jwt.RegisteredClaims
}

// NewClaims fills the registered claims for a token valid for ttl.
func NewClaims(userID, clinicID, role string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		ClinicID: clinicID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func SignHS256(claims Claims, secret string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAndVerifyHS256 verifies signature and expiry and requires a clinic
// and role to be present.
func ParseAndVerifyHS256(token, secret string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if claims.ClinicID == "" || claims.Role == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
