package google

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	gojwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

type assertionClaims struct {
	gojwt.RegisteredClaims
	Scope string `json:"scope"`
}

func serviceAccountJSON(t *testing.T, tokenURI string) ([]byte, *rsa.PrivateKey) {
	t.Helper()
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(pk)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	data, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "mojiokoshi-test",
		"private_key_id": "kid-1",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   "bot@mojiokoshi-test.iam.gserviceaccount.com",
		"token_uri":      tokenURI,
	})
	if err != nil {
		t.Fatal(err)
	}
	return data, pk
}

func TestServiceAccountTokenSource(t *testing.T) {
	var calls atomic.Int32
	var pk *rsa.PrivateKey
	var tokenURI string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != jwtBearerGrant {
			t.Errorf("unexpected grant type %q", got)
		}

		claims := &assertionClaims{}
		tok, err := gojwt.ParseWithClaims(r.PostForm.Get("assertion"), claims, func(*gojwt.Token) (any, error) {
			return &pk.PublicKey, nil
		}, gojwt.WithValidMethods([]string{"RS256"}))
		if err != nil {
			t.Errorf("assertion does not verify: %v", err)
		} else {
			if tok.Header["kid"] != "kid-1" {
				t.Errorf("expected kid header, got %v", tok.Header["kid"])
			}
			if claims.Issuer != "bot@mojiokoshi-test.iam.gserviceaccount.com" || claims.Scope != CloudPlatformScope {
				t.Errorf("unexpected claims %+v", claims)
			}
			if len(claims.Audience) != 1 || claims.Audience[0] != tokenURI {
				t.Errorf("unexpected audience %v", claims.Audience)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "ya29.test", "expires_in": 3600, "token_type": "Bearer"})
	}))
	defer srv.Close()

	tokenURI = srv.URL + "/token"
	var data []byte
	data, pk = serviceAccountJSON(t, tokenURI)
	ts, err := NewServiceAccountTokenSource(context.Background(), data)
	if err != nil {
		t.Fatalf("NewServiceAccountTokenSource: %v", err)
	}

	for range 3 {
		got, err := ts.Token(context.Background())
		if err != nil {
			t.Fatalf("Token: %v", err)
		}
		if got != "ya29.test" {
			t.Errorf("unexpected token %q", got)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected one exchange while cached, got %d", calls.Load())
	}
}

func TestServiceAccountTokenSourceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	data, _ := serviceAccountJSON(t, srv.URL)
	ts, err := NewServiceAccountTokenSource(context.Background(), data)
	if err != nil {
		t.Fatalf("NewServiceAccountTokenSource: %v", err)
	}
	if _, err := ts.Token(context.Background()); err == nil {
		t.Error("expected exchange error")
	}

	tests := []struct {
		name string
		raw  string
	}{
		{"user credentials", `{"type":"authorized_user","client_id":"c","client_secret":"s","refresh_token":"r"}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewServiceAccountTokenSource(context.Background(), []byte(tt.raw)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMetadataTokenSource(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/computeMetadata/v1/instance/service-accounts/default/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Metadata-Flavor") != "Google" {
			t.Error("missing Metadata-Flavor header")
		}
		if r.URL.Query().Get("scopes") != CloudPlatformScope {
			t.Errorf("unexpected scopes %q", r.URL.Query().Get("scopes"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"meta-token","expires_in":1800,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	t.Setenv("GCE_METADATA_HOST", srv.Listener.Addr().String())
	ts := NewMetadataTokenSource()
	for range 2 {
		got, err := ts.Token(context.Background())
		if err != nil || got != "meta-token" {
			t.Fatalf("Token() = %q, %v", got, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected cached metadata token, got %d calls", calls.Load())
	}
}

func TestDefaultTokenSourceFromFile(t *testing.T) {
	data, _ := serviceAccountJSON(t, "https://oauth2.example/token")
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)

	if _, err := DefaultTokenSource(context.Background()); err != nil {
		t.Fatalf("DefaultTokenSource: %v", err)
	}
	if _, err := ServiceAccountTokenSourceFromFile(context.Background(), path); err != nil {
		t.Fatalf("ServiceAccountTokenSourceFromFile: %v", err)
	}

	missing := filepath.Join(t.TempDir(), "missing.json")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", missing)
	if _, err := DefaultTokenSource(context.Background()); err == nil {
		t.Error("expected error for missing credentials file")
	}
	if _, err := ServiceAccountTokenSourceFromFile(context.Background(), missing); err == nil {
		t.Error("expected error for missing key file")
	}
}

func TestFromOAuth2(t *testing.T) {
	ts := FromOAuth2(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"}))
	if got, err := ts.Token(context.Background()); err != nil || got != "abc" {
		t.Errorf("Token() = %q, %v", got, err)
	}

	empty := FromOAuth2(oauth2.StaticTokenSource(&oauth2.Token{}))
	if _, err := empty.Token(context.Background()); err != ErrNoToken {
		t.Errorf("expected ErrNoToken, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ts.Token(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStaticTokenSource(t *testing.T) {
	if got, err := StaticTokenSource("abc").Token(context.Background()); err != nil || got != "abc" {
		t.Errorf("Token() = %q, %v", got, err)
	}
	if _, err := StaticTokenSource("").Token(context.Background()); err == nil {
		t.Error("expected error for empty token")
	}
}
