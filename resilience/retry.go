package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	apperrors "github.com/hyodoblog/mojiokoshi-line-bot/errors"
)

// RetryConfig describes an exponential backoff policy. Zero fields take
// the values of DefaultRetryConfig.
type RetryConfig struct {
	// MaxAttempts counts the first call.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// RetryIf decides whether an error is worth another attempt.
	RetryIf func(error) bool
}

// DefaultRetryConfig allows three attempts starting 200ms apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2,
		RetryIf:        Retryable,
	}
}

// Retryable refuses context errors and honours the Retryable flag of an
// AppError. Anything else is retried.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Retryable
	}
	return true
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.Multiplier < 1 {
		c.Multiplier = d.Multiplier
	}
	if c.RetryIf == nil {
		c.RetryIf = d.RetryIf
	}
	return c
}

// delay returns the pause after the given failed attempt, with up to 10%
// jitter either way, capped at MaxBackoff.
func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= c.Multiplier
	}
	d += d * 0.1 * (rand.Float64()*2 - 1)
	if d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}
	return time.Duration(d)
}

// Retry calls fn until it succeeds, fails with an error RetryIf refuses,
// runs out of attempts or ctx ends. The last error from fn is returned,
// or ctx.Err() if the wait was cut short.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	var (
		zero T
		err  error
	)
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		var out T
		if out, err = fn(); err == nil {
			return out, nil
		}
		if attempt >= cfg.MaxAttempts || !cfg.RetryIf(err) {
			return zero, err
		}
		timer := time.NewTimer(cfg.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
