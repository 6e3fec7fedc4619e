package provider

import (
	"context"
	stderrors "errors"

	"github.com/hyodoblog/mojiokoshi-line-bot/errors"
	"github.com/hyodoblog/mojiokoshi-line-bot/resilience"
)

// ResilienceConfig selects the policies applied around a provider. Nil
// policies are skipped. Only set Retry for idempotent calls.
type ResilienceConfig struct {
	Bulkhead       *resilience.BulkheadConfig
	CircuitBreaker *resilience.CircuitBreakerConfig
	Retry          *resilience.RetryConfig
}

// WithResilience applies, outermost first, the bulkhead, the circuit
// breaker and retry. Refusals by a policy surface as SERVICE_UNAVAILABLE
// or TIMEOUT AppErrors; errors of the call itself pass through.
func WithResilience[I, O any](cfg ResilienceConfig) Middleware[I, O] {
	return func(p RequestResponse[I, O]) RequestResponse[I, O] {
		if cfg.Bulkhead == nil && cfg.CircuitBreaker == nil && cfg.Retry == nil {
			return p
		}
		var (
			bh *resilience.Bulkhead
			cb *resilience.CircuitBreaker
		)
		if cfg.Bulkhead != nil {
			bh = resilience.NewBulkhead(*cfg.Bulkhead)
		}
		if cfg.CircuitBreaker != nil {
			cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
		}
		return &guarded[I, O]{
			around: around[I, O]{p, func(ctx context.Context, in I) (O, error) {
				call := func() (O, error) { return p.Execute(ctx, in) }
				if cfg.Retry != nil {
					call = retried(ctx, *cfg.Retry, call)
				}
				if cb != nil {
					call = breaker(cb, call)
				}
				if bh != nil {
					call = bulkhead(ctx, bh, call)
				}
				return call()
			}},
			cb: cb,
		}
	}
}

type guarded[I, O any] struct {
	around[I, O]
	cb *resilience.CircuitBreaker
}

// IsAvailable is false while the circuit is open.
func (g *guarded[I, O]) IsAvailable(ctx context.Context) bool {
	if g.cb != nil && g.cb.State() == resilience.StateOpen {
		return false
	}
	return g.RequestResponse.IsAvailable(ctx)
}

func retried[T any](ctx context.Context, cfg resilience.RetryConfig, call func() (T, error)) func() (T, error) {
	return func() (T, error) { return resilience.Retry(ctx, cfg, call) }
}

func breaker[T any](cb *resilience.CircuitBreaker, call func() (T, error)) func() (T, error) {
	return func() (T, error) {
		var out T
		var callErr error
		err := cb.Execute(func() error {
			out, callErr = call()
			return callErr
		})
		if callErr == nil && err != nil {
			return out, refusal(cb.Name(), err)
		}
		return out, callErr
	}
}

func bulkhead[T any](ctx context.Context, bh *resilience.Bulkhead, call func() (T, error)) func() (T, error) {
	return func() (T, error) {
		var out T
		var callErr error
		err := bh.Execute(ctx, func() error {
			out, callErr = call()
			return callErr
		})
		if callErr == nil && err != nil {
			return out, refusal("bulkhead", err)
		}
		return out, callErr
	}
}

// refusal maps a policy's own error onto an AppError.
func refusal(name string, err error) error {
	switch {
	case stderrors.Is(err, resilience.ErrCircuitOpen):
		return errors.ServiceUnavailable(name).WithCause(err)
	case stderrors.Is(err, resilience.ErrBulkheadFull), stderrors.Is(err, resilience.ErrBulkheadTimeout):
		return errors.ServiceUnavailable(name).WithCause(err).WithDetail("reason", "concurrency limit reached")
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout(name).WithCause(err)
	}
	return err
}
