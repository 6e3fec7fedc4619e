package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
)

const stopTimeout = 10 * time.Second

// Registry starts components in registration order and stops them in
// reverse, so register dependencies first.
type Registry struct {
	mu         sync.RWMutex
	components []Component
	// running is the length of the prefix of components that started.
	running    int
	log        *logger.Logger
}

// NewRegistry builds an empty registry. A nil log uses the global logger.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Registry{log: log.WithComponent("components")}
}

// Register appends c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.components {
		if existing.Name() == c.Name() {
			return fmt.Errorf("component %s already registered", c.Name())
		}
	}
	r.components = append(r.components, c)
	r.log.Debug("component registered", logger.Fields(logger.FieldComponent, c.Name()))
	return nil
}

// StartAll starts every component not yet running. On the first failure
// the running ones are stopped again and the error is returned.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.running < len(r.components) {
		c := r.components[r.running]
		if err := c.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.MergeWithError(logger.Fields(logger.FieldComponent, c.Name()), err))
			_ = r.stopRunning(ctx)
			return fmt.Errorf("start %s: %w", c.Name(), err)
		}
		r.running++
	}
	r.log.Info("components started", logger.Fields("count", r.running))
	return nil
}

// StopAll stops the running components, newest first, giving each up to
// ten seconds. All stop errors are joined.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopRunning(ctx)
}

func (r *Registry) stopRunning(ctx context.Context) error {
	var errs []error
	for ; r.running > 0; r.running-- {
		c := r.components[r.running-1]
		stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
		err := c.Stop(stopCtx)
		cancel()
		fields := logger.Fields(logger.FieldComponent, c.Name())
		if err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", c.Name(), err))
			r.log.Error("component stop failed", logger.MergeWithError(fields, err))
			continue
		}
		r.log.Info("component stopped", fields)
	}
	return errors.Join(errs...)
}

// HealthAll reports every component in registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Health, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c.Health(ctx))
	}
	return out
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Component(nil), r.components...)
}
