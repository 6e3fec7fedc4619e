package httpclient

import (
	"context"
	"errors"
	"net/http"
)

// Auth decorates an outgoing request with credentials.
type Auth func(*http.Request) error

// TokenFunc returns a bearer token valid for the request being built.
type TokenFunc func(ctx context.Context) (string, error)

// BearerAuth sends a fixed channel or API token.
func BearerAuth(token string) Auth {
	return func(r *http.Request) error {
		r.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// TokenAuth asks fn for a bearer token on every request. Caching belongs
// to the token source.
func TokenAuth(fn TokenFunc) Auth {
	return func(r *http.Request) error {
		if fn == nil {
			return errors.New("token auth without token func")
		}
		token, err := fn(r.Context())
		if err != nil {
			return err
		}
		r.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// APIKeyAuthQuery appends key as the query parameter param.
func APIKeyAuthQuery(key, param string) Auth {
	return func(r *http.Request) error {
		q := r.URL.Query()
		q.Set(param, key)
		r.URL.RawQuery = q.Encode()
		return nil
	}
}
