// Package config loads the clinic-service settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	libconfig "github.com/clinicflow/clinicflow/libs/config"
	otelx "github.com/clinicflow/clinicflow/libs/otel"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/booking"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	ServiceName            string `mapstructure:"SERVICE_NAME"`
	Port                   string `mapstructure:"PORT"`
	GRPCPort               string `mapstructure:"GRPC_PORT"`
	LogLevel               string `mapstructure:"LOG_LEVEL"`
	StoreDriver            string `mapstructure:"STORE_DRIVER"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	DBMaxConns             int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns             int32  `mapstructure:"DB_MIN_CONNS"`
	RedisURL               string `mapstructure:"REDIS_URL"`
	KafkaBrokers           string `mapstructure:"KAFKA_BROKERS"`
	KafkaGroupID           string `mapstructure:"KAFKA_GROUP_ID"`
	KafkaPrescriptionTopic string `mapstructure:"KAFKA_PRESCRIPTION_TOPIC"`
	ClinicTimezone         string `mapstructure:"CLINIC_TIMEZONE"`
	PatientMatchPolicy     string `mapstructure:"PATIENT_MATCH_POLICY"`
	JWTSecret              string `mapstructure:"JWT_SECRET"`
	CORSOrigins            string `mapstructure:"CORS_ORIGINS"`
	RateLimitPerMinute     int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`

	OTel otelx.Config `mapstructure:",squash"`

	// Resolved by Load.
	Location    *time.Location      `mapstructure:"-"`
	MatchPolicy booking.MatchPolicy `mapstructure:"-"`
}

func defaults() map[string]any {
	d := map[string]any{
		"SERVICE_NAME":             "clinic-service",
		"PORT":                     "8080",
		"GRPC_PORT":                "9090",
		"LOG_LEVEL":                "info",
		"STORE_DRIVER":             DriverPostgres,
		"DATABASE_URL":             "",
		"DB_MAX_CONNS":             10,
		"DB_MIN_CONNS":             1,
		"REDIS_URL":                "",
		"KAFKA_BROKERS":            "",
		"KAFKA_GROUP_ID":           "clinic-service",
		"KAFKA_PRESCRIPTION_TOPIC": "prescription.created.v1",
		"CLINIC_TIMEZONE":          "UTC",
		"PATIENT_MATCH_POLICY":     string(booking.MatchFullName),
		"JWT_SECRET":               "",
		"CORS_ORIGINS":             "",
		"RATE_LIMIT_PER_MINUTE":    60,
	}
	for k, v := range otelx.Defaults() {
		d[k] = v
	}
	return d
}

// Load reads the environment (and envFile when it exists) and validates the
// result.
func Load(envFile string) (Config, error) {
	var cfg Config
	if err := libconfig.Load(envFile, defaults(), &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var err error
	if c.Port, err = libconfig.Port("PORT", c.Port); err != nil {
		return err
	}
	if strings.TrimSpace(c.GRPCPort) != "" {
		if c.GRPCPort, err = libconfig.Port("GRPC_PORT", c.GRPCPort); err != nil {
			return err
		}
	}

	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverPostgres:
		if err := libconfig.Required("DATABASE_URL", c.DatabaseURL); err != nil {
			return err
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q (got %q)", DriverPostgres, DriverMemory, c.StoreDriver)
	}

	if err := libconfig.Required("JWT_SECRET", c.JWTSecret); err != nil {
		return err
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative (got %d)", c.RateLimitPerMinute)
	}
	if c.Location, err = libconfig.Location("CLINIC_TIMEZONE", c.ClinicTimezone); err != nil {
		return err
	}
	if c.MatchPolicy, err = booking.ParseMatchPolicy(c.PatientMatchPolicy); err != nil {
		return fmt.Errorf("PATIENT_MATCH_POLICY: %w", err)
	}
	if c.OTel.ServiceName == "" {
		c.OTel.ServiceName = c.ServiceName
	}
	return nil
}

func (c Config) Origins() []string {
	return libconfig.List(c.CORSOrigins)
}
