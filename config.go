package apmz

import "github.com/kelseyhightower/envconfig"

// Config holds the registry's reservoir capacities. Capacities bound
// only the sample windows; statistics accumulate regardless. A value of
// 0 disables the corresponding reservoir.
type Config struct {
	MaxSamples int `envconfig:"APMZ_MAX_SAMPLES" default:"20"`
	MaxErrors  int `envconfig:"APMZ_MAX_ERRORS" default:"20"`
}

// DefaultConfig returns the capacities used by New.
func DefaultConfig() Config {
	return Config{
		MaxSamples: 20,
		MaxErrors:  20,
	}
}

// ConfigFromEnv loads capacities from APMZ_* environment variables,
// falling back to defaults for anything unset.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// normalize clamps negative capacities to 0 (reservoir disabled).
// Instrumentation favors normalization over rejecting input.
func (c Config) normalize() Config {
	if c.MaxSamples < 0 {
		c.MaxSamples = 0
	}
	if c.MaxErrors < 0 {
		c.MaxErrors = 0
	}
	return c
}
