package line

import (
	"fmt"
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/util"
)

const (
	defaultAPIEndpoint  = "https://api.line.me"
	defaultDataEndpoint = "https://api-data.line.me"
	defaultTimeout      = 30 * time.Second
	defaultMaxContent   = "200MB"

	// MaxMessagesPerRequest is the LINE limit for reply and push requests.
	MaxMessagesPerRequest = 5
)

// Config holds the channel credentials and endpoints.
type Config struct {
	// ChannelSecret verifies webhook signatures.
	ChannelSecret string `yaml:"channel_secret" mapstructure:"channel_secret" validate:"required"`
	// ChannelAccessToken authenticates API calls. Leave it empty to issue
	// tokens through Assertion.
	ChannelAccessToken string          `yaml:"channel_access_token" mapstructure:"channel_access_token"`
	Assertion          AssertionConfig `yaml:"assertion" mapstructure:"assertion"`
	// APIEndpoint serves reply and push.
	APIEndpoint string `yaml:"api_endpoint" mapstructure:"api_endpoint" validate:"omitempty,url"`
	// DataEndpoint serves message content.
	DataEndpoint string `yaml:"data_endpoint" mapstructure:"data_endpoint" validate:"omitempty,url"`
	// Timeout bounds reply and push calls. Content downloads follow the
	// caller's context.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MaxContentBytes caps downloaded content, e.g. "200MB".
	MaxContentBytes string `yaml:"max_content_bytes" mapstructure:"max_content_bytes"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.APIEndpoint == "" {
		c.APIEndpoint = defaultAPIEndpoint
	}
	if c.DataEndpoint == "" {
		c.DataEndpoint = defaultDataEndpoint
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxContentBytes == "" {
		c.MaxContentBytes = defaultMaxContent
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ChannelSecret == "" {
		return fmt.Errorf("line: channel_secret is required")
	}
	switch {
	case c.ChannelAccessToken != "" && c.Assertion.enabled():
		return fmt.Errorf("line: set channel_access_token or assertion, not both")
	case c.Assertion.enabled():
		if err := c.Assertion.validate(); err != nil {
			return err
		}
	case c.ChannelAccessToken == "":
		return fmt.Errorf("line: channel_access_token or assertion.channel_id is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("line: timeout must be positive")
	}
	if c.maxContentBytes() <= 0 {
		return fmt.Errorf("line: invalid max_content_bytes %q", c.MaxContentBytes)
	}
	return nil
}

func (c *Config) maxContentBytes() int64 {
	return util.ParseSize(c.MaxContentBytes, 0)
}
