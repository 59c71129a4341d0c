package cache

import "time"

// Config holds store tuning knobs. The zero value is not usable;
// construct from DefaultConfig and override as needed.
type Config struct {
	// StaleTime is the default freshness window: reads within StaleTime
	// of an entry's last update never refetch, even across remounts.
	// Per-read options can override it.
	StaleTime time.Duration

	// GCGrace is how long an entry with zero subscribers is kept warm
	// before it becomes garbage-eligible and is dropped.
	GCGrace time.Duration
}

// DefaultConfig returns a Config with defaults tuned for interactive
// storefront views: short freshness, generous keep-warm window.
func DefaultConfig() Config {
	return Config{
		StaleTime: 30 * time.Second,
		GCGrace:   30 * time.Second,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.StaleTime < 0 {
		return &ConfigError{Field: "StaleTime", Message: "must be non-negative"}
	}
	if c.GCGrace < 0 {
		return &ConfigError{Field: "GCGrace", Message: "must be non-negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// ReadOption adjusts a single read.
type ReadOption func(*readOptions)

type readOptions struct {
	staleTime    time.Duration
	hasStaleTime bool
}

// WithStaleTime overrides the store-level StaleTime for one read.
func WithStaleTime(d time.Duration) ReadOption {
	return func(o *readOptions) {
		o.staleTime = d
		o.hasStaleTime = true
	}
}
