package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/component"
	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
)

// App owns the lifecycle of one service built around a typed config C.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	settings
}

type settings struct {
	log         *logger.Logger
	stopTimeout time.Duration
	out         io.Writer
	banner      bool
}

// Option adjusts NewApp. Options are not generic so one set serves any C.
type Option func(*settings)

// WithLogger replaces the logger otherwise built from the logging section.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithGracefulTimeout bounds the whole shutdown (default 15s).
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *settings) { s.stopTimeout = d }
}

// WithOutput is where the banner and startup summary go (default stdout).
func WithOutput(w io.Writer) Option {
	return func(s *settings) { s.out = w }
}

// WithBanner turns the startup banner on or off.
func WithBanner(on bool) Option {
	return func(s *settings) { s.banner = on }
}

// NewApp defaults and validates cfg, then sets up logging and an empty
// component registry.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	svc := cfg.GetServiceConfig()

	s := settings{stopTimeout: 15 * time.Second, out: os.Stdout, banner: true}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		logger.Init(svc.Logging)
		s.log = logger.GetGlobalLogger()
	}

	return &App[C]{
		Name:       svc.Name,
		Version:    svc.Version,
		Cfg:        cfg,
		Components: component.NewRegistry(s.log),
		Logger:     s.log,
		Summary:    &Summary{},
		settings:   s,
	}, nil
}

// RegisterComponent adds c to the registry. Components start in
// registration order and stop in reverse.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// Run starts every component, prints the summary, then blocks until
// SIGINT, SIGTERM or the end of ctx and shuts down.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	wait, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	<-wait.Done()
	stop()
	a.Logger.Info("shutting down", logger.Fields("cause", context.Cause(wait).Error()))

	return a.Shutdown()
}

// Start brings the components up. A component that started but reports
// itself unhealthy, such as media without ffprobe, is logged and kept.
func (a *App[C]) Start(ctx context.Context) error {
	began := time.Now()
	if a.banner {
		PrintBanner(a.out, a.Name, a.Version)
	}
	a.Logger.Info("starting", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("start %s: %w", a.Name, err)
	}
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status != component.StatusHealthy {
			a.Logger.Warn("component not healthy", logger.Fields(logger.FieldComponent, h.Name, "status", string(h.Status), "message", h.Message))
		}
	}

	a.Summary.Print(ctx, a.out, Started{Name: a.Name, Version: a.Version, Took: time.Since(began)}, a.Components)
	return nil
}

// Shutdown stops the components within the graceful timeout.
func (a *App[C]) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.stopTimeout)
	defer cancel()

	err := a.Components.StopAll(ctx)
	if err != nil {
		a.Logger.Error("shutdown finished with errors", logger.ErrorFields("stop", err))
		return err
	}
	a.Logger.Info("shutdown complete")
	return nil
}
