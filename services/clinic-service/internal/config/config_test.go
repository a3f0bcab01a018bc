package config

import (
	"strings"
	"testing"

	"github.com/clinicflow/clinicflow/services/clinic-service/internal/booking"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://clinic@localhost/clinic")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.GRPCPort != "9090" || cfg.StoreDriver != DriverPostgres {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Location.String() != "UTC" || cfg.MatchPolicy != booking.MatchFullName {
		t.Fatalf("unexpected location/policy %s %s", cfg.Location, cfg.MatchPolicy)
	}
	if cfg.OTel.ServiceName != "clinic-service" || cfg.KafkaPrescriptionTopic != "prescription.created.v1" {
		t.Fatalf("unexpected otel/kafka config %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CLINIC_TIMEZONE", "Asia/Dhaka")
	t.Setenv("PATIENT_MATCH_POLICY", "full_name_phone")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DB_MAX_CONNS", "4")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != DriverMemory || cfg.DBMaxConns != 4 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Location.String() != "Asia/Dhaka" || cfg.MatchPolicy != booking.MatchFullNamePhone {
		t.Fatalf("unexpected location/policy %s %s", cfg.Location, cfg.MatchPolicy)
	}
	if got := cfg.Origins(); len(got) != 2 || got[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing database", map[string]string{"JWT_SECRET": "s"}, "DATABASE_URL"},
		{"missing secret", map[string]string{"STORE_DRIVER": "memory"}, "JWT_SECRET"},
		{"bad port", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "PORT": "99999"}, "PORT"},
		{"bad driver", map[string]string{"STORE_DRIVER": "mysql", "JWT_SECRET": "s"}, "STORE_DRIVER"},
		{"bad zone", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "CLINIC_TIMEZONE": "Mars/Base"}, "CLINIC_TIMEZONE"},
		{"bad policy", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "PATIENT_MATCH_POLICY": "dob"}, "PATIENT_MATCH_POLICY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
