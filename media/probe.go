package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	apperrors "github.com/hyodoblog/mojiokoshi-line-bot/errors"
	"github.com/hyodoblog/mojiokoshi-line-bot/process"
)

// Prober reads the audio profile of encoded audio with ffprobe.
type Prober struct {
	exec Executor
	cfg  Config
}

// NewProber creates a Prober running ffprobe through exec.
func NewProber(exec Executor, cfg Config) *Prober {
	cfg.ApplyDefaults()
	return &Prober{exec: exec, cfg: cfg}
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Probe returns the sample rate and channel count of the first stream that
// reports a sample rate. Probe the transcoded FLAC, not the raw upload:
// containers from phones often carry inconsistent stream headers.
func (p *Prober) Probe(ctx context.Context, data []byte) (*AudioProfile, error) {
	if len(data) == 0 {
		return nil, apperrors.ProbeFailed("empty input", nil)
	}

	cmd := process.Command{Binary: p.cfg.FFprobePath}
	input, cleanup, err := stageInput(&p.cfg, &cmd, data)
	if err != nil {
		return nil, apperrors.ProbeFailed("staging input", err)
	}
	defer cleanup()
	cmd.Args = []string{"-v", "error", "-print_format", "json", "-show_streams", "-i", input}

	res, err := p.exec.Execute(ctx, cmd)
	if err != nil {
		return nil, apperrors.ProbeFailed("ffprobe failed", err).WithDetail("stderr", res.StderrTail(stderrTail))
	}
	return parseProbeOutput(res.Stdout)
}

func parseProbeOutput(raw []byte) (*AudioProfile, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperrors.ProbeFailed("unreadable ffprobe output", err)
	}

	for _, s := range out.Streams {
		if s.SampleRate == "" {
			continue
		}
		rate, err := strconv.Atoi(s.SampleRate)
		if err != nil {
			return nil, apperrors.ProbeFailed("invalid sample rate", fmt.Errorf("sample_rate %q: %w", s.SampleRate, err))
		}
		profile := &AudioProfile{SampleRateHertz: rate, AudioChannelCount: s.Channels}
		if err := profile.Validate(); err != nil {
			return nil, apperrors.ProbeFailed("invalid audio stream", err)
		}
		return profile, nil
	}
	return nil, apperrors.ProbeFailed("no audio stream", errors.New("no stream reports a sample rate"))
}
