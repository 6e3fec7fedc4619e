package media

import (
	"bytes"
	"fmt"
	"os"

	"github.com/hyodoblog/mojiokoshi-line-bot/process"
)

// stageInput points cmd at data according to the input mode and returns
// the value for ffmpeg's -i and a cleanup func.
func stageInput(cfg *Config, cmd *process.Command, data []byte) (string, func(), error) {
	if cfg.InputMode != InputFile {
		cmd.Stdin = bytes.NewReader(data)
		return "pipe:0", func() {}, nil
	}

	f, err := os.CreateTemp(cfg.TempDir, "mojiokoshi-*.media")
	if err != nil {
		return "", nil, fmt.Errorf("media: create temp input: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("media: write temp input: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("media: close temp input: %w", err)
	}
	return f.Name(), cleanup, nil
}
