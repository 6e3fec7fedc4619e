// Package recognition turns image and audio buffers into text through the
// configured OCR and speech providers. Empty outcomes are reported with fixed
// sentinel strings, never with an empty string or an error.
package recognition

import (
	"context"
	"strings"

	apperrors "github.com/hyodoblog/mojiokoshi-line-bot/errors"
	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
	"github.com/hyodoblog/mojiokoshi-line-bot/media"
	"github.com/hyodoblog/mojiokoshi-line-bot/ocr"
	"github.com/hyodoblog/mojiokoshi-line-bot/transcription"
)

const (
	// NoTextExtracted is returned when an image has no text region.
	NoTextExtracted = "テキストが抽出できませんでした"
	// NothingRecognized is returned when speech recognition yields nothing.
	NothingRecognized = "音声を抽出できませんでした...\n音を大きくしてみてください！"

	// DefaultLanguageCode is used when RecognizeSpeech gets an empty code.
	DefaultLanguageCode = "ja-JP"
	// DefaultModel lets the speech backend pick its model.
	DefaultModel = "default"
)

// Gateway fronts the OCR and speech providers. It holds no per-request state
// and is safe for concurrent use.
type Gateway struct {
	images ocr.Provider
	speech transcription.Provider
	hints  []string
	log    *logger.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLanguageHints passes language hints to the OCR provider.
func WithLanguageHints(hints ...string) Option {
	return func(g *Gateway) { g.hints = hints }
}

// WithLogger sets the gateway logger.
func WithLogger(log *logger.Logger) Option {
	return func(g *Gateway) { g.log = log }
}

// NewGateway creates a Gateway. Either provider may be nil when the
// corresponding media kind is not served; calls then fail with
// RecognitionFailed.
func NewGateway(images ocr.Provider, speech transcription.Provider, opts ...Option) *Gateway {
	g := &Gateway{images: images, speech: speech}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.GetGlobalLogger()
	}
	g.log = g.log.WithComponent("recognition")
	return g
}

// RecognizeImageText returns the text found in image, or NoTextExtracted.
func (g *Gateway) RecognizeImageText(ctx context.Context, image []byte) (string, error) {
	if g.images == nil {
		return "", apperrors.RecognitionFailed("ocr", errNoProvider)
	}

	ann, err := g.images.Execute(ctx, ocr.Request{Image: image, LanguageHints: g.hints})
	if err != nil {
		return "", apperrors.RecognitionFailed(g.images.Name(), err)
	}
	if ann == nil || ann.Text == "" {
		g.log.WithContext(ctx).Debug("no text region detected")
		return NoTextExtracted, nil
	}
	return ann.Text, nil
}

type speechOptions struct {
	encoding string
	model    string
}

// SpeechOption overrides a RecognizeSpeech request parameter.
type SpeechOption func(*speechOptions)

// WithEncoding overrides the audio encoding name (default FLAC).
func WithEncoding(encoding string) SpeechOption {
	return func(o *speechOptions) {
		if encoding != "" {
			o.encoding = encoding
		}
	}
}

// WithModel overrides the recognition model (default "default").
func WithModel(model string) SpeechOption {
	return func(o *speechOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// RecognizeSpeech transcribes audio described by profile. The first
// alternative of every result is joined with newlines in provider order; an
// empty join yields NothingRecognized.
func (g *Gateway) RecognizeSpeech(ctx context.Context, audio []byte, profile *media.AudioProfile, languageCode string, opts ...SpeechOption) (string, error) {
	if err := profile.Validate(); err != nil {
		return "", apperrors.Validation(err.Error()).WithCause(err)
	}
	if g.speech == nil {
		return "", apperrors.RecognitionFailed("speech", errNoProvider)
	}
	if languageCode == "" {
		languageCode = DefaultLanguageCode
	}

	o := speechOptions{encoding: media.FLACEncoding, model: DefaultModel}
	for _, opt := range opts {
		opt(&o)
	}

	resp, err := g.speech.Execute(ctx, transcription.Request{
		Audio: audio,
		Config: transcription.Config{
			Encoding:          o.encoding,
			SampleRateHertz:   profile.SampleRateHertz,
			AudioChannelCount: profile.AudioChannelCount,
			LanguageCode:      languageCode,
			Model:             o.model,
		},
	})
	if err != nil {
		return "", apperrors.RecognitionFailed(g.speech.Name(), err)
	}

	text := joinTranscripts(resp)
	if text == "" {
		g.log.WithContext(ctx).Debug("speech recognized nothing", logger.Fields(
			"sample_rate", profile.SampleRateHertz,
			"channels", profile.AudioChannelCount,
		))
		return NothingRecognized, nil
	}
	return text, nil
}

func joinTranscripts(resp *transcription.Response) string {
	if resp == nil {
		return ""
	}
	lines := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		lines = append(lines, r.Alternatives[0].Transcript)
	}
	return strings.Join(lines, "\n")
}
