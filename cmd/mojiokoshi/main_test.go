package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/hyodoblog/mojiokoshi-line-bot/errors"
	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
	"github.com/hyodoblog/mojiokoshi-line-bot/media"
	"github.com/hyodoblog/mojiokoshi-line-bot/recognition"
	"github.com/hyodoblog/mojiokoshi-line-bot/transcription"
	"github.com/hyodoblog/mojiokoshi-line-bot/transcription/speech"
	"github.com/hyodoblog/mojiokoshi-line-bot/transcription/whisper"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
name: mojiokoshi
environment: production
line:
  channel_secret: ""
  channel_access_token: ""
media:
  input_mode: file
recognition:
  speech:
    backend: whisper
    settings:
      api_key: sk-test
      timeout: 30s
pipeline:
  duration_limit: 45s
`)
	t.Setenv("CHANNEL_SECRET", "legacy-secret")
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "namespaced-token")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Line.ChannelSecret != "legacy-secret" || cfg.Line.ChannelAccessToken != "namespaced-token" {
		t.Errorf("line credentials = %q / %q", cfg.Line.ChannelSecret, cfg.Line.ChannelAccessToken)
	}
	if cfg.Pipeline.DurationLimit != 45*time.Second || cfg.Pipeline.ChunkLimit != 2000 {
		t.Errorf("unexpected pipeline config %+v", cfg.Pipeline)
	}
	if cfg.Media.InputMode != "file" || cfg.Media.FFmpegPath != "ffmpeg" {
		t.Errorf("unexpected media config %+v", cfg.Media)
	}
	if cfg.Recognition.OCR.Backend != "vision" || cfg.Recognition.Speech.Backend != "whisper" {
		t.Errorf("unexpected backends %+v", cfg.Recognition)
	}

	p, err := newSpeechProvider(cfg.Recognition, nil)
	if err != nil {
		t.Fatalf("newSpeechProvider: %v", err)
	}
	if p.Name() != whisper.ProviderName {
		t.Errorf("speech provider = %s", p.Name())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"missing secret", func(c *AppConfig) { c.Line.ChannelSecret = "" }, "channel_secret"},
		{"bad input mode", func(c *AppConfig) { c.Media.InputMode = "socket" }, "input_mode"},
		{"bad environment", func(c *AppConfig) { c.Environment = "qa" }, "environment"},
		{"bad chunk limit", func(c *AppConfig) { c.Pipeline.ChunkLimit = -5 }, "chunk_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &AppConfig{}
			cfg.Line.ChannelSecret = "s"
			cfg.Line.ChannelAccessToken = "t"
			cfg.ApplyDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestProviderSelection(t *testing.T) {
	cfg := RecognitionConfig{}
	cfg.ApplyDefaults()

	if _, err := newOCRProvider(cfg, nil); err == nil {
		t.Error("vision without api key or token source should fail")
	}
	cfg.OCR.Settings = map[string]any{"api_key": "k"}
	if p, err := newOCRProvider(cfg, nil); err != nil || p.Name() != "vision" {
		t.Errorf("newOCRProvider = %v, %v", p, err)
	}

	cfg.Speech.Backend = "dictation"
	if _, err := newSpeechProvider(cfg, nil); err == nil || !strings.Contains(err.Error(), "dictation") {
		t.Errorf("unknown backend error = %v", err)
	}
}

func TestRecognitionFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := speech.New(speech.Config{Endpoint: srv.URL, APIKey: "k"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	log := logger.NewWithWriter(&logger.Config{Level: "error", Format: "json"}, "test", io.Discard)
	gateway := recognition.NewGateway(nil, decorate[transcription.Request, *transcription.Response](p, log, nil), recognition.WithLogger(log))

	profile := &media.AudioProfile{SampleRateHertz: 16000, AudioChannelCount: 1}
	_, err = gateway.RecognizeSpeech(context.Background(), []byte("fLaC"), profile, "ja-JP")
	if !apperrors.IsRecognition(err) {
		t.Fatalf("expected recognition error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one provider call, got %d", calls.Load())
	}
}
