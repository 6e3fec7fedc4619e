package transcription

import (
	"github.com/hyodoblog/mojiokoshi-line-bot/provider"
)

// Provider is the interface that transcription backends implement.
type Provider = provider.RequestResponse[Request, *Response]

// NewRegistry creates a registry of transcription backend factories.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}

// Config describes the audio and how to recognize it.
type Config struct {
	// Encoding names the audio encoding, e.g. "FLAC".
	Encoding string `json:"encoding"`
	// SampleRateHertz is the sample rate of the audio.
	SampleRateHertz int `json:"sampleRateHertz"`
	// AudioChannelCount is the number of channels in the audio.
	AudioChannelCount int `json:"audioChannelCount"`
	// LanguageCode is a BCP-47 tag, e.g. "ja-JP".
	LanguageCode string `json:"languageCode"`
	// Model selects the backend model; "default" lets the backend choose.
	Model string `json:"model,omitempty"`
}

// Request holds one recognition call. It is built per call and not reused.
type Request struct {
	// Audio is the encoded audio; backends base64 it for transport.
	Audio []byte
	// Config describes the audio.
	Config Config
}

// Response holds the recognized results in the order the backend returned
// them.
type Response struct {
	Results []Result `json:"results"`
}

// Result is one consecutive portion of the audio.
type Result struct {
	// Alternatives are ordered by confidence, most likely first.
	Alternatives []Alternative `json:"alternatives"`
	// LanguageCode is the detected language, if reported.
	LanguageCode string `json:"languageCode,omitempty"`
}

// Alternative is one hypothesis for a result.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence,omitempty"`
}
