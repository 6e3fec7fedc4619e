package process

import (
	"context"
	"os/exec"
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/provider"
)

var _ provider.RequestResponse[Command, *Result] = (*Tool)(nil)

// ToolConfig describes a family of binaries run through one Tool.
type ToolConfig struct {
	Name string
	// Binaries must all be on PATH for the tool to count as available.
	Binaries []string
	// Timeout bounds each run. 0 leaves it to the caller's context.
	Timeout     time.Duration
	GracePeriod time.Duration
}

// Tool exposes Run as a provider so ffmpeg calls can take the provider
// middlewares.
type Tool struct {
	cfg      ToolConfig
	lookPath func(string) (string, error)
}

func NewTool(cfg ToolConfig) *Tool {
	if cfg.Name == "" {
		cfg.Name = "process"
	}
	return &Tool{cfg: cfg, lookPath: exec.LookPath}
}

func (t *Tool) Name() string { return t.cfg.Name }

// IsAvailable reports whether every binary resolves on PATH.
func (t *Tool) IsAvailable(context.Context) bool {
	for _, bin := range t.cfg.Binaries {
		if _, err := t.lookPath(bin); err != nil {
			return false
		}
	}
	return true
}

// Execute runs cmd with the tool's timeout and default grace period.
func (t *Tool) Execute(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.GracePeriod == 0 {
		cmd.GracePeriod = t.cfg.GracePeriod
	}
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}
	return Run(ctx, cmd)
}
