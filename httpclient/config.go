package httpclient

import (
	"errors"
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/resilience"
)

const defaultTimeout = 30 * time.Second

// Config describes one remote endpoint.
type Config struct {
	// Name labels breaker state and errors.
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds buffered requests. Streams are bounded by their context.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxResponseBytes caps buffered bodies; zero disables the cap.
	MaxResponseBytes int64             `mapstructure:"max_response_bytes"`
	Headers          map[string]string `mapstructure:"headers"`

	Auth           Auth                             `mapstructure:"-"`
	Retry          *resilience.RetryConfig          `mapstructure:"-"`
	CircuitBreaker *resilience.CircuitBreakerConfig `mapstructure:"-"`
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "http"
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.Retry != nil && c.Retry.RetryIf == nil {
		c.Retry.RetryIf = IsRetryable
	}
}

func (c *Config) validate() error {
	if c.Timeout < 0 {
		return errors.New("httpclient: timeout must not be negative")
	}
	if c.MaxResponseBytes < 0 {
		return errors.New("httpclient: max_response_bytes must not be negative")
	}
	return nil
}

// DefaultCircuitBreakerConfig returns breaker settings named after the client.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	return &cfg
}
