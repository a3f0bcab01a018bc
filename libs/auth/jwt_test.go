package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHS256RoundTrip(t *testing.T) {
	claims := NewClaims("user-1", "clinic-1", RoleOwner, time.Hour)
	secret := "test-secret"

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Subject != "user-1" || parsed.ClinicID != "clinic-1" || parsed.Role != RoleOwner {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestParseAndVerifyHS256_Expired(t *testing.T) {
	token, err := SignHS256(NewClaims("user-1", "clinic-1", RoleDoctor, -time.Minute), "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s"); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseAndVerifyHS256_RequiresClinic(t *testing.T) {
	token, err := SignHS256(NewClaims("user-1", "", RoleDoctor, time.Hour), "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s"); err == nil {
		t.Fatal("expected token without clinic to fail")
	}
}

func TestRequireAuthAndRole(t *testing.T) {
	secret := "test-secret"
	h := RequireAuth(RequireRole(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		if claims.ClinicID != "clinic-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), RoleOwner, RoleDoctor), secret)

	call := func(role string) int {
		token, err := SignHS256(NewClaims("user-1", "clinic-1", role, time.Hour), secret)
		if err != nil {
			t.Fatalf("SignHS256 failed: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw.Code
	}

	if code := call(RoleOwner); code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", code)
	}
	if code := call(RoleAssistant); code != http.StatusForbidden {
		t.Fatalf("expected 403 for assistant, got %d", code)
	}

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("Authorization", "Bearer badtoken")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rw.Code)
	}
}
