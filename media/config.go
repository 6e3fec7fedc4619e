package media

import (
	"fmt"
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/util"
)

// Input modes for handing content to ffmpeg and ffprobe.
const (
	InputStdin = "stdin"
	InputFile  = "file"
)

// Config configures the ffmpeg/ffprobe subprocesses.
type Config struct {
	// FFmpegPath is the ffmpeg binary (resolved via PATH).
	FFmpegPath string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	// FFprobePath is the ffprobe binary (resolved via PATH).
	FFprobePath string `yaml:"ffprobe_path" mapstructure:"ffprobe_path"`
	// InputMode is "stdin" (pipe the bytes) or "file" (spool to a temp
	// file first). Containers with the index at the end, like m4a, only
	// decode from a seekable file.
	InputMode string `yaml:"input_mode" mapstructure:"input_mode" validate:"omitempty,oneof=stdin file"`
	// TempDir holds spooled inputs. Empty uses os.TempDir.
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
	// Timeout bounds a single ffmpeg or ffprobe run.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// GracePeriod is the SIGTERM to SIGKILL delay on cancellation.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
	// MaxConcurrent bounds concurrently running subprocesses.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
	// MaxOutput caps the encoded output, e.g. "64MB".
	MaxOutput string `yaml:"max_output" mapstructure:"max_output"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FFprobePath == "" {
		c.FFprobePath = "ffprobe"
	}
	if c.InputMode == "" {
		c.InputMode = InputStdin
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = 2 * time.Second
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 4
	}
	if c.MaxOutput == "" {
		c.MaxOutput = "64MB"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.InputMode != InputStdin && c.InputMode != InputFile {
		return fmt.Errorf("media.input_mode must be %q or %q (got: %s)", InputStdin, InputFile, c.InputMode)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("media.timeout must be non-negative (got: %s)", c.Timeout)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("media.max_concurrent must be non-negative (got: %d)", c.MaxConcurrent)
	}
	return nil
}

func (c *Config) maxOutputBytes() int64 {
	return util.ParseSize(c.MaxOutput, 64<<20)
}
