// Package whisper implements transcription.Provider with the OpenAI audio
// transcription API (or any server speaking the same protocol).
package whisper

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyodoblog/mojiokoshi-line-bot/httpclient"
	"github.com/hyodoblog/mojiokoshi-line-bot/provider"
	"github.com/hyodoblog/mojiokoshi-line-bot/transcription"
)

const (
	// ProviderName is the registered name for the Whisper provider.
	ProviderName = "whisper"

	defaultWhisperModel   = openai.Whisper1
	defaultWhisperTimeout = 120 * time.Second
)

// Config holds configuration for the Whisper transcription provider.
type Config struct {
	// BaseURL overrides the API root, e.g. a self-hosted whisper server.
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Provider implements transcription.Provider.
type Provider struct {
	cfg    Config
	client *openai.Client
}

var _ transcription.Provider = (*Provider)(nil)

// NewProvider creates a new Whisper transcription provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultWhisperTimeout
	}

	hc, err := httpclient.New(httpclient.Config{
		Name:    ProviderName,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = hc.Unwrap()

	return &Provider{cfg: cfg, client: openai.NewClientWithConfig(oc)}, nil
}

// Factory returns a provider.Factory that creates Whisper Provider
// instances from a generic config map.
func Factory() provider.Factory[transcription.Provider] {
	return func(raw map[string]any) (transcription.Provider, error) {
		cfg, err := provider.DecodeConfig[Config](raw)
		if err != nil {
			return nil, err
		}
		return NewProvider(cfg)
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the provider has credentials or a custom
// endpoint that may not need them.
func (p *Provider) IsAvailable(context.Context) bool {
	return p.cfg.APIKey != "" || p.cfg.BaseURL != ""
}

// Execute uploads the audio and maps each transcribed segment to a result.
// The request's encoding, sample rate and channel count are carried by the
// FLAC container itself and are not sent.
func (p *Provider) Execute(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	model := p.cfg.Model
	if req.Config.Model != "" && req.Config.Model != "default" {
		model = req.Config.Model
	}

	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: "audio." + fileExtension(req.Config.Encoding),
		Reader:   bytes.NewReader(req.Audio),
		Language: languageTag(req.Config.LanguageCode),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper: transcribe: %w", err)
	}
	return toTranscriptionResponse(&resp), nil
}

func toTranscriptionResponse(resp *openai.AudioResponse) *transcription.Response {
	out := &transcription.Response{}
	add := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		out.Results = append(out.Results, transcription.Result{
			Alternatives: []transcription.Alternative{{Transcript: text}},
			LanguageCode: resp.Language,
		})
	}

	if len(resp.Segments) == 0 {
		add(resp.Text)
		return out
	}
	for _, seg := range resp.Segments {
		add(seg.Text)
	}
	return out
}

// languageTag reduces a BCP-47 tag like "ja-JP" to the ISO-639-1 code the
// API expects.
func languageTag(code string) string {
	code = strings.ToLower(code)
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

func fileExtension(encoding string) string {
	switch strings.ToUpper(encoding) {
	case "", "FLAC":
		return "flac"
	case "LINEAR16":
		return "wav"
	case "OGG_OPUS":
		return "ogg"
	case "MP3":
		return "mp3"
	default:
		return strings.ToLower(encoding)
	}
}
