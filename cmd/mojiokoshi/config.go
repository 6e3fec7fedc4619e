package main

import (
	"errors"
	"fmt"

	"github.com/hyodoblog/mojiokoshi-line-bot/config"
	"github.com/hyodoblog/mojiokoshi-line-bot/line"
	"github.com/hyodoblog/mojiokoshi-line-bot/media"
	"github.com/hyodoblog/mojiokoshi-line-bot/observability"
	"github.com/hyodoblog/mojiokoshi-line-bot/ocr/vision"
	"github.com/hyodoblog/mojiokoshi-line-bot/pipeline"
	"github.com/hyodoblog/mojiokoshi-line-bot/server"
	"github.com/hyodoblog/mojiokoshi-line-bot/transcription/speech"
	"github.com/hyodoblog/mojiokoshi-line-bot/validation"
)

const serviceName = "mojiokoshi"

// legacyEnv maps the variable names of the original deployment onto config
// keys.
var legacyEnv = map[string]string{
	"CHANNEL_SECRET":       "line.channel_secret",
	"CHANNEL_ACCESS_TOKEN": "line.channel_access_token",
	"PORT":                 "server.port",
}

// AppConfig is the full service configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Line          line.Config          `yaml:"line" mapstructure:"line"`
	Media         media.Config         `yaml:"media" mapstructure:"media"`
	Recognition   RecognitionConfig    `yaml:"recognition" mapstructure:"recognition"`
	Pipeline      pipeline.Config      `yaml:"pipeline" mapstructure:"pipeline"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// BackendConfig selects a registered backend and passes it its settings.
type BackendConfig struct {
	Backend  string         `yaml:"backend" mapstructure:"backend"`
	Settings map[string]any `yaml:"settings" mapstructure:"settings"`
}

// RecognitionConfig configures the OCR and speech providers.
type RecognitionConfig struct {
	// Credentials is a service-account key file. Empty falls back to
	// GOOGLE_APPLICATION_CREDENTIALS and then the metadata server.
	Credentials   string        `yaml:"credentials" mapstructure:"credentials"`
	OCR           BackendConfig `yaml:"ocr" mapstructure:"ocr"`
	Speech        BackendConfig `yaml:"speech" mapstructure:"speech"`
	LanguageHints []string      `yaml:"language_hints" mapstructure:"language_hints"`
}

// ApplyDefaults fills zero fields.
func (c *RecognitionConfig) ApplyDefaults() {
	if c.OCR.Backend == "" {
		c.OCR.Backend = vision.ProviderName
	}
	if c.Speech.Backend == "" {
		c.Speech.Backend = speech.ProviderName
	}
	if len(c.LanguageHints) == 0 {
		c.LanguageHints = []string{"ja"}
	}
}

// ApplyDefaults applies defaults to every section.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Line.ApplyDefaults()
	c.Media.ApplyDefaults()
	c.Recognition.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate validates struct tags first, then every section.
func (c *AppConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"service", &c.ServiceConfig},
		{"server", &c.Server},
		{"line", &c.Line},
		{"media", &c.Media},
		{"pipeline", &c.Pipeline},
		{"observability", &c.Observability},
	}
	var errs []error
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func loadConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	opts := []config.LoaderOption{config.WithEnvAliases(legacyEnv)}
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
