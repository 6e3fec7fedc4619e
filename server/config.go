package server

import (
	"net"
	"strconv"
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/validation"
)

// Config is the server section of config.yml.
type Config struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"gte=0"`
	MaxBodySize     string        `yaml:"max_body_size" mapstructure:"max_body_size"`
}

// ApplyDefaults fills unset fields. The write timeout spans a whole
// delivery, transcription of every event included.
func (c *Config) ApplyDefaults() {
	def := func(d *time.Duration, v time.Duration) {
		if *d == 0 {
			*d = v
		}
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	def(&c.ReadTimeout, 15*time.Second)
	def(&c.WriteTimeout, 5*time.Minute)
	def(&c.IdleTimeout, time.Minute)
	def(&c.ShutdownTimeout, 10*time.Second)
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
}

func (c *Config) Validate() error { return validation.Validate(c) }

// Addr is host:port for net.Listen.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
