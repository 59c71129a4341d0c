package storefront

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the remote storefront API client configuration.
type Config struct {
	// BaseURL is the root of the remote REST API.
	BaseURL string `env:"STOREFRONT_API_URL" envDefault:"http://localhost:8080/api"`

	// Timeout bounds a single API request.
	Timeout time.Duration `env:"STOREFRONT_API_TIMEOUT" envDefault:"15s"`

	// UserAgent is sent with every request.
	UserAgent string `env:"STOREFRONT_USER_AGENT" envDefault:"go-storefront-cache/1.0"`

	// LogLevel controls client logging (debug, info, warn, error).
	LogLevel string `env:"STOREFRONT_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse storefront config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("storefront config: BaseURL must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("storefront config: Timeout must be positive")
	}
	return nil
}
