package component

import "context"

// HealthStatus is the coarse state reported by /health and /ready.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is one component's entry in a health report.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a part of the bot with a lifecycle: the HTTP server, the
// ffmpeg toolchain, the telemetry exporters.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is a component's line in the startup summary.
type Description struct {
	Name    string
	Type    string
	Details string
	Port    int
}

// Describable components appear in the startup summary.
type Describable interface {
	Describe() Description
}

// Route is a mounted HTTP route, listed in the startup summary.
type Route struct {
	Method  string
	Path    string
	Handler string
}

type RouteProvider interface {
	Routes() []Route
}

// Func turns a pair of functions into a Component, healthy while started.
// Either function may be nil.
type Func struct {
	ComponentName string
	Type          string
	Details       string
	OnStart       func(ctx context.Context) error
	OnStop        func(ctx context.Context) error

	started bool
}

func (f *Func) Name() string { return f.ComponentName }

func (f *Func) Start(ctx context.Context) error {
	if f.OnStart != nil {
		if err := f.OnStart(ctx); err != nil {
			return err
		}
	}
	f.started = true
	return nil
}

func (f *Func) Stop(ctx context.Context) error {
	f.started = false
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop(ctx)
}

func (f *Func) Health(context.Context) Health {
	h := Health{Name: f.ComponentName, Status: StatusHealthy}
	if !f.started {
		h.Status, h.Message = StatusUnhealthy, "not started"
	}
	return h
}

func (f *Func) Describe() Description {
	return Description{Name: f.ComponentName, Type: f.Type, Details: f.Details}
}
