package provider

import (
	"context"
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/errors"
	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
	"github.com/hyodoblog/mojiokoshi-line-bot/observability"
)

// WithLogging logs each call with its duration: failures at error level,
// successes at debug.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return func(p RequestResponse[I, O]) RequestResponse[I, O] {
		return around[I, O]{p, func(ctx context.Context, in I) (O, error) {
			began := time.Now()
			out, err := p.Execute(ctx, in)

			fields := logger.DurationFields("execute", time.Since(began))
			fields[logger.FieldProvider] = p.Name()
			if err != nil {
				log.WithContext(ctx).Error("provider call failed", logger.MergeWithError(fields, err))
			} else {
				log.WithContext(ctx).Debug("provider call done", fields)
			}
			return out, err
		}}
	}
}

// WithTracing runs each call in a span named "provider.<name>".
func WithTracing[I, O any]() Middleware[I, O] {
	return func(p RequestResponse[I, O]) RequestResponse[I, O] {
		return around[I, O]{p, func(ctx context.Context, in I) (O, error) {
			ctx, span := observability.StartSpan(ctx, "provider."+p.Name())
			defer span.End()
			observability.Annotate(ctx, observability.AttrProvider, p.Name())

			out, err := p.Execute(ctx, in)
			observability.Fail(ctx, err)
			return out, err
		}}
	}
}

// WithMetrics counts calls and their duration, and failures by error
// code. With nil metrics the provider is returned as is.
func WithMetrics[I, O any](m *observability.Metrics) Middleware[I, O] {
	return func(p RequestResponse[I, O]) RequestResponse[I, O] {
		if m == nil {
			return p
		}
		return around[I, O]{p, func(ctx context.Context, in I) (O, error) {
			began := time.Now()
			out, err := p.Execute(ctx, in)
			status := "ok"
			if err != nil {
				status = "error"
				code := errors.ErrCodeInternal
				if ae, ok := errors.AsAppError(err); ok {
					code = ae.Code
				}
				m.RecordError(ctx, string(code), p.Name())
			}
			m.RecordOperation(ctx, p.Name(), status, time.Since(began))
			return out, err
		}}
	}
}
