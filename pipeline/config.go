package pipeline

import (
	"fmt"
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/textchunk"
)

const (
	// RejectAudioMessage answers audio at or over the duration limit.
	RejectAudioMessage = "1分未満の音声を送信してください"
	// RejectVideoMessage answers video at or over the duration limit.
	RejectVideoMessage = "1分未満の動画を送信してください"
)

// Config holds the pipeline settings.
type Config struct {
	// DurationLimit rejects audio and video lasting this long or longer.
	DurationLimit time.Duration `yaml:"duration_limit" mapstructure:"duration_limit"`
	// ChunkLimit is the maximum reply segment length in characters.
	ChunkLimit int `yaml:"chunk_limit" mapstructure:"chunk_limit"`
	// StageTimeout bounds every fetch, transcode, probe and recognition call.
	StageTimeout time.Duration `yaml:"stage_timeout" mapstructure:"stage_timeout"`
	// LanguageCode is the BCP-47 speech language.
	LanguageCode string `yaml:"language_code" mapstructure:"language_code"`
	// SpeechModel overrides the recognition model; empty uses the backend default.
	SpeechModel string `yaml:"speech_model" mapstructure:"speech_model"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.DurationLimit == 0 {
		c.DurationLimit = time.Minute
	}
	if c.ChunkLimit == 0 {
		c.ChunkLimit = textchunk.DefaultLimit
	}
	if c.StageTimeout == 0 {
		c.StageTimeout = 2 * time.Minute
	}
	if c.LanguageCode == "" {
		c.LanguageCode = "ja-JP"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.DurationLimit <= 0 {
		return fmt.Errorf("pipeline: duration_limit must be positive")
	}
	if c.ChunkLimit <= 0 {
		return fmt.Errorf("pipeline: chunk_limit must be positive")
	}
	if c.StageTimeout <= 0 {
		return fmt.Errorf("pipeline: stage_timeout must be positive")
	}
	return nil
}
