package media

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hyodoblog/mojiokoshi-line-bot/component"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component reports whether ffmpeg and ffprobe can be run. A missing binary
// leaves the service degraded: images are still answered.
type Component struct {
	cfg      Config
	lookPath func(string) (string, error)
}

// NewComponent creates the media health component.
func NewComponent(cfg Config) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, lookPath: exec.LookPath}
}

// Name returns the component name.
func (c *Component) Name() string { return "media" }

// Start never fails: Health resolves the binaries on every call.
func (c *Component) Start(ctx context.Context) error { return nil }

// Stop is a no-op; subprocesses are bound to their request contexts.
func (c *Component) Stop(ctx context.Context) error { return nil }

// Health reports degraded when a binary cannot be resolved.
func (c *Component) Health(ctx context.Context) component.Health {
	if missing := c.missing(); len(missing) > 0 {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusDegraded,
			Message: fmt.Sprintf("not found: %s", strings.Join(missing, ", ")),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns the startup summary line.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Media",
		Type:    "media",
		Details: fmt.Sprintf("%s/%s input=%s max=%d", c.cfg.FFmpegPath, c.cfg.FFprobePath, c.cfg.InputMode, c.cfg.MaxConcurrent),
	}
}

func (c *Component) missing() []string {
	var missing []string
	for _, bin := range []string{c.cfg.FFmpegPath, c.cfg.FFprobePath} {
		if _, err := c.lookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	return missing
}
