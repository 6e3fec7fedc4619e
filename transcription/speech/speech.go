// Package speech implements transcription.Provider with the Google Cloud
// Speech-to-Text v1 REST API. Synchronous recognize accepts up to one minute
// of audio, which matches the bot's duration limit.
package speech

import (
	"context"
	"fmt"
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/auth/google"
	"github.com/hyodoblog/mojiokoshi-line-bot/httpclient"
	"github.com/hyodoblog/mojiokoshi-line-bot/provider"
	"github.com/hyodoblog/mojiokoshi-line-bot/transcription"
)

const (
	// ProviderName is the registered name of this backend.
	ProviderName = "speech"

	defaultEndpoint = "https://speech.googleapis.com"
	recognizePath   = "/v1/speech:recognize"
	defaultTimeout  = 90 * time.Second
)

// Config holds the Speech backend settings.
type Config struct {
	// Endpoint is the API root. Defaults to https://speech.googleapis.com.
	Endpoint string `mapstructure:"endpoint"`
	// APIKey authenticates with an API key instead of an OAuth token.
	APIKey string `mapstructure:"api_key"`
	// EnableAutomaticPunctuation asks for punctuation in transcripts.
	EnableAutomaticPunctuation bool `mapstructure:"enable_automatic_punctuation"`
	// Timeout bounds one recognize call.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Provider calls speech:recognize.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

var _ transcription.Provider = (*Provider)(nil)

// New creates the Speech backend. tokens is used unless cfg.APIKey is set.
func New(cfg Config, tokens google.TokenSource) (*Provider, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	var auth httpclient.Auth
	switch {
	case cfg.APIKey != "":
		auth = httpclient.APIKeyAuthQuery(cfg.APIKey, "key")
	case tokens != nil:
		auth = httpclient.TokenAuth(tokens.Token)
	default:
		return nil, fmt.Errorf("speech: api_key or a token source is required")
	}

	client, err := httpclient.New(httpclient.Config{
		Name:           ProviderName,
		BaseURL:        cfg.Endpoint,
		Timeout:        cfg.Timeout,
		Auth:           auth,
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(ProviderName),
	})
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// Factory returns a provider.Factory building the backend from settings.
func Factory(tokens google.TokenSource) provider.Factory[transcription.Provider] {
	return func(raw map[string]any) (transcription.Provider, error) {
		cfg, err := provider.DecodeConfig[Config](raw)
		if err != nil {
			return nil, err
		}
		return New(cfg, tokens)
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports false while the circuit breaker is open.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.client.IsAvailable(ctx)
}

type recognizeRequest struct {
	Config recognitionConfig `json:"config"`
	Audio  recognitionAudio  `json:"audio"`
}

type recognitionConfig struct {
	Encoding                   string `json:"encoding,omitempty"`
	SampleRateHertz            int    `json:"sampleRateHertz,omitempty"`
	AudioChannelCount          int    `json:"audioChannelCount,omitempty"`
	LanguageCode               string `json:"languageCode"`
	Model                      string `json:"model,omitempty"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation,omitempty"`
}

type recognitionAudio struct {
	Content []byte `json:"content"` // base64 on the wire
}

// Execute sends one synchronous recognize request.
func (p *Provider) Execute(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	body := recognizeRequest{
		Config: recognitionConfig{
			Encoding:                   req.Config.Encoding,
			SampleRateHertz:            req.Config.SampleRateHertz,
			AudioChannelCount:          req.Config.AudioChannelCount,
			LanguageCode:               req.Config.LanguageCode,
			Model:                      req.Config.Model,
			EnableAutomaticPunctuation: p.cfg.EnableAutomaticPunctuation,
		},
		Audio: recognitionAudio{Content: req.Audio},
	}

	resp, err := httpclient.Post[transcription.Response](p.client, ctx, recognizePath, body)
	if err != nil {
		return nil, fmt.Errorf("speech: recognize: %w", err)
	}
	return &resp.Data, nil
}
