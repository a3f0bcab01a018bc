package config

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Port     string `mapstructure:"PORT"`
	MaxConns int32  `mapstructure:"DB_MAX_CONNS"`
	Timezone string `mapstructure:"CLINIC_TIMEZONE"`
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "25")

	var cfg testConfig
	err := Load("", map[string]any{
		"PORT":            "8085",
		"DB_MAX_CONNS":    10,
		"CLINIC_TIMEZONE": "UTC",
	}, &cfg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8085" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if cfg.MaxConns != 25 {
		t.Fatalf("expected env override 25, got %d", cfg.MaxConns)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clinic.env")
	if err := os.WriteFile(path, []byte("CLINIC_TIMEZONE=Asia/Dhaka\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	var cfg testConfig
	if err := Load(path, map[string]any{"CLINIC_TIMEZONE": "UTC"}, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timezone != "Asia/Dhaka" {
		t.Fatalf("expected timezone from file, got %q", cfg.Timezone)
	}
}

func TestPort(t *testing.T) {
	if _, err := Port("PORT", "70000"); err == nil {
		t.Fatal("expected out-of-range port to fail")
	}
	p, err := Port("PORT", " 8080 ")
	if err != nil || p != "8080" {
		t.Fatalf("unexpected result %q, %v", p, err)
	}
}

func TestLocation(t *testing.T) {
	loc, err := Location("CLINIC_TIMEZONE", "")
	if err != nil || loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %v, %v", loc, err)
	}
	if _, err := Location("CLINIC_TIMEZONE", "Mars/Olympus"); err == nil {
		t.Fatal("expected unknown zone to fail")
	}
}

func TestList(t *testing.T) {
	got := List(" a, ,b,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected list %v", got)
	}
}
