package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clinicflow/clinicflow/services/clinic-service/internal/model"
)

func TestSlotLockKey(t *testing.T) {
	loc := time.FixedZone("clinic", 6*3600)
	local := time.Date(2026, 3, 9, 10, 20, 0, 0, loc)
	utc := local.UTC()
	if slotLockKey("doc", local) != slotLockKey("doc", utc) {
		t.Fatalf("lock key must not depend on the location")
	}
	if got := slotLockKey("doc", utc); got != "slot:doc:2026-03-09T04:20:00Z" {
		t.Fatalf("unexpected key %q", got)
	}
	if slotLockKey("doc", utc) == slotLockKey("other", utc) {
		t.Fatalf("keys of different doctors must differ")
	}
}

func TestValidID(t *testing.T) {
	if !validID("6f1c2a9e-3b1d-4c1e-9a57-3c2f4f0d7b11") {
		t.Fatalf("expected uuid to be valid")
	}
	for _, id := range []string{"", "nope", "123"} {
		if validID(id) {
			t.Fatalf("expected %q to be invalid", id)
		}
	}
}

func TestNotFound(t *testing.T) {
	if !errors.Is(notFound(pgx.ErrNoRows), model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound")
	}
	other := errors.New("boom")
	if notFound(other) != other {
		t.Fatalf("expected passthrough")
	}
}
