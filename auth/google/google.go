package google

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	gauth "golang.org/x/oauth2/google"
)

// CloudPlatformScope grants access to Vision and Speech.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// ErrNoToken is returned when a source yields an empty access token.
var ErrNoToken = errors.New("google: empty access token")

// TokenSource returns a valid access token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// FromOAuth2 adapts an oauth2.TokenSource. The source is wrapped in
// oauth2.ReuseTokenSource, so tokens are cached until shortly before expiry.
func FromOAuth2(ts oauth2.TokenSource) TokenSource {
	return &oauthSource{ts: oauth2.ReuseTokenSource(nil, ts)}
}

type oauthSource struct {
	ts oauth2.TokenSource
}

func (s *oauthSource) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := s.ts.Token()
	if err != nil {
		return "", fmt.Errorf("google: token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", ErrNoToken
	}
	return tok.AccessToken, nil
}

func scopesOrDefault(scopes []string) []string {
	if len(scopes) == 0 {
		return []string{CloudPlatformScope}
	}
	return scopes
}

// NewServiceAccountTokenSource exchanges a signed assertion from the
// service-account key in data for access tokens at the key's token_uri.
func NewServiceAccountTokenSource(ctx context.Context, data []byte, scopes ...string) (TokenSource, error) {
	cfg, err := gauth.JWTConfigFromJSON(data, scopesOrDefault(scopes)...)
	if err != nil {
		return nil, fmt.Errorf("google: service account: %w", err)
	}
	return FromOAuth2(cfg.TokenSource(ctx)), nil
}

// ServiceAccountTokenSourceFromFile reads the key at path.
func ServiceAccountTokenSourceFromFile(ctx context.Context, path string, scopes ...string) (TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("google: read credentials: %w", err)
	}
	return NewServiceAccountTokenSource(ctx, data, scopes...)
}

// NewMetadataTokenSource asks the instance metadata server for the default
// service account's token. GCE_METADATA_HOST overrides the host.
func NewMetadataTokenSource(scopes ...string) TokenSource {
	return FromOAuth2(gauth.ComputeTokenSource("", scopesOrDefault(scopes)...))
}

// DefaultTokenSource resolves application default credentials:
// GOOGLE_APPLICATION_CREDENTIALS, the gcloud credentials file, then the
// metadata server.
func DefaultTokenSource(ctx context.Context, scopes ...string) (TokenSource, error) {
	creds, err := gauth.FindDefaultCredentials(ctx, scopesOrDefault(scopes)...)
	if err != nil {
		return nil, fmt.Errorf("google: default credentials: %w", err)
	}
	return FromOAuth2(creds.TokenSource), nil
}

// StaticTokenSource always returns the same token. Useful for tests and for
// tokens minted outside the process.
type StaticTokenSource string

// Token implements TokenSource.
func (s StaticTokenSource) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}
