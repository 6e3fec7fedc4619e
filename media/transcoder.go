package media

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/hyodoblog/mojiokoshi-line-bot/errors"
	"github.com/hyodoblog/mojiokoshi-line-bot/process"
)

// FLACEncoding is the speech-recognition encoding name of the transcoder's
// output.
const FLACEncoding = "FLAC"

const stderrTail = 512

// Transcoder converts audio and video content to FLAC.
type Transcoder struct {
	exec Executor
	cfg  Config
}

// NewTranscoder creates a Transcoder running ffmpeg through exec.
func NewTranscoder(exec Executor, cfg Config) *Transcoder {
	cfg.ApplyDefaults()
	return &Transcoder{exec: exec, cfg: cfg}
}

// ToLosslessAudio re-encodes audio of any container and codec to FLAC,
// keeping the original sample rate and channel layout.
func (t *Transcoder) ToLosslessAudio(ctx context.Context, data []byte) ([]byte, error) {
	return t.transcode(ctx, "to_lossless_audio", data, false)
}

// ExtractAudioTrack drops the video streams of a container and encodes its
// audio to FLAC.
func (t *Transcoder) ExtractAudioTrack(ctx context.Context, data []byte) ([]byte, error) {
	return t.transcode(ctx, "extract_audio_track", data, true)
}

func (t *Transcoder) transcode(ctx context.Context, op string, data []byte, dropVideo bool) ([]byte, error) {
	if len(data) == 0 {
		return nil, apperrors.TranscodeFailed(op, "", errors.New("empty input"))
	}

	cmd := process.Command{
		Binary:    t.cfg.FFmpegPath,
		MaxStdout: t.cfg.maxOutputBytes(),
	}
	input, cleanup, err := stageInput(&t.cfg, &cmd, data)
	if err != nil {
		return nil, apperrors.TranscodeFailed(op, "", err)
	}
	defer cleanup()

	cmd.Args = ffmpegArgs(input, dropVideo)

	res, err := t.exec.Execute(ctx, cmd)
	if err != nil {
		return nil, apperrors.TranscodeFailed(op, res.StderrTail(stderrTail), err)
	}
	if len(res.Stdout) == 0 {
		return nil, apperrors.TranscodeFailed(op, res.StderrTail(stderrTail), fmt.Errorf("%s produced no output", t.cfg.FFmpegPath))
	}
	return res.Stdout, nil
}

// ffmpegArgs builds "ffmpeg -i <input> [-vn] -acodec flac -f flac pipe:1".
func ffmpegArgs(input string, dropVideo bool) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if input != "pipe:0" {
		args = append(args, "-nostdin")
	}
	args = append(args, "-i", input)
	if dropVideo {
		args = append(args, "-vn")
	}
	return append(args, "-acodec", "flac", "-f", "flac", "pipe:1")
}
