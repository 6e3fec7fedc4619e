package observability

import (
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/validation"
)

// Config is the observability section of config.yml.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is the collector's OTLP/HTTP host:port.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate is the share of root traces kept.
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval" validate:"gte=0"`
}

func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1
	}
	if c.MetricInterval == 0 {
		c.MetricInterval = 15 * time.Second
	}
}

func (c *Config) Validate() error { return validation.Validate(c) }
