package config

import (
	"fmt"

	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
	"github.com/hyodoblog/mojiokoshi-line-bot/validation"
)

// ServiceConfig is the part of every service config that bootstrap reads.
// Embed it by value with `mapstructure:",squash"` so its keys stay at the
// top level of config.yml.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetServiceConfig exposes the embedded section through the outer config.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig { return c }

// ApplyDefaults runs in development unless told otherwise, with debug on
// there.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Debug = c.Debug || c.Environment == "development"
	c.Logging.ApplyDefaults()
}

func (c *ServiceConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
