package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load fills out (a struct with mapstructure tags) from the environment,
// falling back to an optional env file and then to defaults. Every key in
// defaults is bound explicitly so Unmarshal sees values that only exist in
// the environment.
func Load(envFile string, defaults map[string]any, out any) error {
	v := viper.New()
	v.AutomaticEnv()
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if envFile != "" {
		// A missing env file is fine; the environment is the primary source.
		_ = v.ReadInConfig()
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// Port validates a TCP port value read from config.
func Port(key, value string) (string, error) {
	p, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", key, value)
	}
	return strconv.Itoa(p), nil
}

// Required returns an error naming key when value is blank.
func Required(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", key)
	}
	return nil
}

// Location resolves an IANA zone name; blank means UTC.
func Location(key, name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%s must be an IANA time zone (got %q): %w", key, name, err)
	}
	return loc, nil
}

// List splits a comma separated value, dropping blanks.
func List(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
