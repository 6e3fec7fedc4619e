package media

import (
	"fmt"
	"strings"
)

// Kind is the media type of an inbound message.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// ParseKind maps a message type to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindImage, KindAudio, KindVideo:
		return k, nil
	default:
		return "", fmt.Errorf("media: unsupported kind %q", s)
	}
}

// HasAudio reports whether the kind goes through transcoding.
func (k Kind) HasAudio() bool {
	return k == KindAudio || k == KindVideo
}

func (k Kind) String() string { return string(k) }

// Buffer is the content of one message. It is owned by a single pipeline
// run and never mutated after it is fetched.
type Buffer struct {
	Kind Kind
	Data []byte
}

// Len returns the content size in bytes.
func (b Buffer) Len() int { return len(b.Data) }

// AudioProfile is what the speech recognizer needs to know about audio.
type AudioProfile struct {
	SampleRateHertz   int `json:"sampleRateHertz"`
	AudioChannelCount int `json:"audioChannelCount"`
}

// Validate reports whether both fields are positive.
func (p *AudioProfile) Validate() error {
	if p == nil {
		return fmt.Errorf("media: audio profile is required")
	}
	if p.SampleRateHertz <= 0 {
		return fmt.Errorf("media: sample rate must be positive (got: %d)", p.SampleRateHertz)
	}
	if p.AudioChannelCount <= 0 {
		return fmt.Errorf("media: channel count must be positive (got: %d)", p.AudioChannelCount)
	}
	return nil
}
