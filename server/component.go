package server

import (
	"context"
	"slices"
	"strings"

	"github.com/hyodoblog/mojiokoshi-line-bot/component"
)

// Component runs a Server under the component registry.
type Component struct {
	s *Server
}

var (
	_ component.Component     = (*Component)(nil)
	_ component.Describable   = (*Component)(nil)
	_ component.RouteProvider = (*Component)(nil)
)

func NewComponent(s *Server) *Component { return &Component{s: s} }

func (c *Component) Name() string { return "http-server" }

func (c *Component) Start(ctx context.Context) error { return c.s.Start(ctx) }

func (c *Component) Stop(ctx context.Context) error { return c.s.Stop(ctx) }

// Health is healthy while the listener is open.
func (c *Component) Health(context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.s.listening() {
		h.Status, h.Message = component.StatusUnhealthy, "not listening"
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{Name: "HTTP Server", Type: "gin+h2c", Details: c.s.Addr(), Port: c.s.cfg.Port}
}

// Routes lists the Gin routes, application routes before the probes,
// each group sorted by path.
func (c *Component) Routes() []component.Route {
	var app, probes []component.Route
	for _, r := range c.s.engine.Routes() {
		route := component.Route{Method: r.Method, Path: r.Path, Handler: shortHandler(r.Handler)}
		if isProbe(r.Path) {
			probes = append(probes, route)
		} else {
			app = append(app, route)
		}
	}
	byPath := func(a, b component.Route) int { return strings.Compare(a.Path+a.Method, b.Path+b.Method) }
	slices.SortFunc(app, byPath)
	slices.SortFunc(probes, byPath)
	return append(app, probes...)
}

func isProbe(path string) bool {
	return path == "/health" || path == "/ready" || path == "/info"
}

// shortHandler trims a Gin handler name to its type and method:
// ".../webhook.(*Handler).Handle-fm" is "Handler.Handle" and
// ".../endpoint.Health.func1" is "endpoint.Health".
func shortHandler(name string) string {
	name = strings.TrimSuffix(name, "-fm")
	name = name[strings.LastIndex(name, "/")+1:]
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)

	parts := strings.Split(name, ".")
	for len(parts) > 1 && strings.HasPrefix(parts[len(parts)-1], "func") {
		parts = parts[:len(parts)-1]
	}
	if len(parts) > 2 {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}
