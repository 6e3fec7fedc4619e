package line

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/url"
	"os"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/hyodoblog/mojiokoshi-line-bot/httpclient"
)

const (
	tokenPath           = "/oauth2/v2.1/token"
	clientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	assertionAudience   = "https://api.line.me/"
	// assertionLifetime is the longest the token endpoint accepts.
	assertionLifetime = 30 * time.Minute
	defaultTokenTTL   = 24 * time.Hour
	maxTokenTTL       = 30 * 24 * time.Hour
)

// AssertionConfig issues short-lived channel access tokens (v2.1) by
// signing a JWT with the channel's assertion key instead of using a
// long-lived token.
type AssertionConfig struct {
	ChannelID string `yaml:"channel_id" mapstructure:"channel_id"`
	// KeyFile is the PEM-encoded RSA private key registered for the channel.
	KeyFile string `yaml:"key_file" mapstructure:"key_file"`
	// KeyID is the kid LINE returned when the public key was registered.
	KeyID string `yaml:"key_id" mapstructure:"key_id"`
	// TokenTTL is the lifetime requested for issued tokens (24h if 0).
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

func (c *AssertionConfig) enabled() bool { return c.ChannelID != "" }

func (c *AssertionConfig) validate() error {
	switch {
	case c.KeyFile == "":
		return fmt.Errorf("line: assertion.key_file is required with assertion.channel_id")
	case c.KeyID == "":
		return fmt.Errorf("line: assertion.key_id is required with assertion.channel_id")
	case c.TokenTTL < 0 || c.TokenTTL > maxTokenTTL:
		return fmt.Errorf("line: assertion.token_ttl must be within 30 days")
	}
	return nil
}

type assertionClaims struct {
	gojwt.RegisteredClaims
	TokenExp int64 `json:"token_exp"`
}

type issuedToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	KeyID       string `json:"key_id"`
}

// assertionSource implements oauth2.TokenSource against the LINE token
// endpoint.
type assertionSource struct {
	cfg    AssertionConfig
	key    *rsa.PrivateKey
	client *httpclient.Client
	now    func() time.Time
}

// NewAssertionTokenSource returns a cached token source issuing channel
// access tokens from apiEndpoint.
func NewAssertionTokenSource(cfg AssertionConfig, apiEndpoint string, timeout time.Duration) (oauth2.TokenSource, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	pemData, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("line: read assertion key: %w", err)
	}
	key, err := gojwt.ParseRSAPrivateKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("line: parse assertion key: %w", err)
	}
	client, err := httpclient.New(httpclient.Config{
		Name:    "line-oauth",
		BaseURL: apiEndpoint,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	s := &assertionSource{cfg: cfg, key: key, client: client, now: time.Now}
	return oauth2.ReuseTokenSource(nil, s), nil
}

func (s *assertionSource) assertion(now time.Time) (string, error) {
	claims := assertionClaims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    s.cfg.ChannelID,
			Subject:   s.cfg.ChannelID,
			Audience:  gojwt.ClaimStrings{assertionAudience},
			ExpiresAt: gojwt.NewNumericDate(now.Add(assertionLifetime)),
		},
		TokenExp: int64(s.cfg.TokenTTL / time.Second),
	}
	tok := gojwt.NewWithClaims(gojwt.SigningMethodRS256, claims)
	tok.Header["kid"] = s.cfg.KeyID
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("line: sign assertion: %w", err)
	}
	return signed, nil
}

// Token issues a new channel access token.
func (s *assertionSource) Token() (*oauth2.Token, error) {
	now := s.now()
	assertion, err := s.assertion(now)
	if err != nil {
		return nil, err
	}
	form := url.Values{
		"grant_type":            {"client_credentials"},
		"client_assertion_type": {clientAssertionType},
		"client_assertion":      {assertion},
	}
	resp, err := httpclient.Post[issuedToken](s.client, context.Background(), tokenPath, form)
	if err != nil {
		return nil, fmt.Errorf("line: issue channel access token: %w", err)
	}
	if resp.Data.AccessToken == "" {
		return nil, fmt.Errorf("line: token endpoint returned no access_token")
	}
	return &oauth2.Token{
		AccessToken: resp.Data.AccessToken,
		TokenType:   resp.Data.TokenType,
		Expiry:      now.Add(time.Duration(resp.Data.ExpiresIn) * time.Second),
	}, nil
}
