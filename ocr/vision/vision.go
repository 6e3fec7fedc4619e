// Package vision implements ocr.Provider with the Google Cloud Vision REST
// API (images:annotate, TEXT_DETECTION).
package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/auth/google"
	"github.com/hyodoblog/mojiokoshi-line-bot/httpclient"
	"github.com/hyodoblog/mojiokoshi-line-bot/ocr"
	"github.com/hyodoblog/mojiokoshi-line-bot/provider"
)

const (
	// ProviderName is the registered name of this backend.
	ProviderName = "vision"

	defaultEndpoint = "https://vision.googleapis.com"
	annotatePath    = "/v1/images:annotate"
	defaultFeature  = "TEXT_DETECTION"
	defaultTimeout  = 30 * time.Second
)

// Config holds the Vision backend settings.
type Config struct {
	// Endpoint is the API root. Defaults to https://vision.googleapis.com.
	Endpoint string `mapstructure:"endpoint"`
	// APIKey authenticates with an API key instead of an OAuth token.
	APIKey string `mapstructure:"api_key"`
	// Feature is TEXT_DETECTION (default) or DOCUMENT_TEXT_DETECTION.
	Feature string `mapstructure:"feature"`
	// LanguageHints apply when a request has none.
	LanguageHints []string `mapstructure:"language_hints"`
	// Timeout bounds one annotate call.
	Timeout time.Duration `mapstructure:"timeout"`
}

func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	if c.Feature == "" {
		c.Feature = defaultFeature
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// Provider calls images:annotate.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

var _ ocr.Provider = (*Provider)(nil)

// New creates the Vision backend. tokens is used unless cfg.APIKey is set.
func New(cfg Config, tokens google.TokenSource) (*Provider, error) {
	cfg.applyDefaults()

	var auth httpclient.Auth
	switch {
	case cfg.APIKey != "":
		auth = httpclient.APIKeyAuthQuery(cfg.APIKey, "key")
	case tokens != nil:
		auth = httpclient.TokenAuth(tokens.Token)
	default:
		return nil, fmt.Errorf("vision: api_key or a token source is required")
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
func Factory(tokens google.TokenSource) provider.Factory[ocr.Provider] {
	return func(raw map[string]any) (ocr.Provider, error) {
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

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image        image         `json:"image"`
	Features     []feature     `json:"features"`
	ImageContext *imageContext `json:"imageContext,omitempty"`
}

type image struct {
	Content []byte `json:"content"` // base64 on the wire
}

type feature struct {
	Type string `json:"type"`
}

type imageContext struct {
	LanguageHints []string `json:"languageHints,omitempty"`
}

type annotateResponse struct {
	Responses []imageResponse `json:"responses"`
}

type imageResponse struct {
	FullTextAnnotation *struct {
		Text  string `json:"text"`
		Pages []struct {
			Property *struct {
				DetectedLanguages []struct {
					LanguageCode string `json:"languageCode"`
				} `json:"detectedLanguages"`
			} `json:"property"`
		} `json:"pages"`
	} `json:"fullTextAnnotation"`
	Error *apiStatus `json:"error"`
}

type apiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Execute annotates one image. Missing responses or a missing
// fullTextAnnotation yield a nil Annotation.
func (p *Provider) Execute(ctx context.Context, req ocr.Request) (*ocr.Annotation, error) {
	hints := req.LanguageHints
	if len(hints) == 0 {
		hints = p.cfg.LanguageHints
	}
	ir := imageRequest{
		Image:    image{Content: req.Image},
		Features: []feature{{Type: p.cfg.Feature}},
	}
	if len(hints) > 0 {
		ir.ImageContext = &imageContext{LanguageHints: hints}
	}

	resp, err := httpclient.Post[annotateResponse](p.client, ctx, annotatePath, annotateRequest{Requests: []imageRequest{ir}})
	if err != nil {
		return nil, fmt.Errorf("vision: annotate: %w", err)
	}
	if len(resp.Data.Responses) == 0 {
		return nil, nil
	}

	r := resp.Data.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		return nil, fmt.Errorf("vision: annotate: code %d: %s", r.Error.Code, r.Error.Message)
	}
	if r.FullTextAnnotation == nil {
		return nil, nil
	}

	ann := &ocr.Annotation{Text: r.FullTextAnnotation.Text}
	for _, page := range r.FullTextAnnotation.Pages {
		if page.Property != nil && len(page.Property.DetectedLanguages) > 0 {
			ann.Locale = page.Property.DetectedLanguages[0].LanguageCode
			break
		}
	}
	return ann, nil
}
