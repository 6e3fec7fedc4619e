package bootstrap

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/component"
)

// Started is the headline of the startup summary.
type Started struct {
	Name    string
	Version string
	Took    time.Duration
}

// Summary lists, after startup, the infrastructure, routes, upstream
// clients and health of the service.
type Summary struct {
	clients []string
}

// TrackClient adds an upstream the service calls, e.g. the LINE data API.
func (s *Summary) TrackClient(name, target, kind string) {
	s.clients = append(s.clients, fmt.Sprintf("%s -> %s [%s]", name, target, kind))
}

// Print writes the summary to w. A nil registry prints the headline only.
func (s *Summary) Print(ctx context.Context, w io.Writer, head Started, reg *component.Registry) {
	fmt.Fprintf(w, "\n%s %s started in %.2fs\n", head.Name, head.Version, head.Took.Seconds())
	if reg != nil {
		var infra, routes, health []string
		for _, c := range reg.All() {
			if d, ok := c.(component.Describable); ok {
				infra = append(infra, describe(c.Name(), d.Describe()))
			}
			if rp, ok := c.(component.RouteProvider); ok {
				for _, r := range rp.Routes() {
					routes = append(routes, fmt.Sprintf("%-7s %s -> %s", r.Method, r.Path, r.Handler))
				}
			}
		}
		for _, h := range reg.HealthAll(ctx) {
			line := fmt.Sprintf("%s %s: %s", icon(h.Status), h.Name, h.Status)
			if h.Message != "" {
				line += " (" + h.Message + ")"
			}
			health = append(health, line)
		}

		section(w, "Infrastructure", infra)
		section(w, fmt.Sprintf("Routes (%d)", len(routes)), routes)
		section(w, "Clients", s.clients)
		section(w, "Health", health)
	}
	fmt.Fprintln(w)
}

func describe(fallback string, d component.Description) string {
	name := d.Name
	if name == "" {
		name = fallback
	}
	line := fmt.Sprintf("%s [%s]: %s", name, d.Type, d.Details)
	if d.Port > 0 {
		line += fmt.Sprintf(" (:%d)", d.Port)
	}
	return line
}

func section(w io.Writer, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	for i, l := range lines {
		branch := "├──"
		if i == len(lines)-1 {
			branch = "└──"
		}
		fmt.Fprintf(w, "   %s %s\n", branch, l)
	}
}

func icon(s component.HealthStatus) string {
	switch s {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	}
	return "❓"
}
