package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter is the bot's meter on the global provider.
func Meter() metric.Meter { return otel.Meter(scope) }

// Metrics are the instruments the bot reports.
type Metrics struct {
	calls    metric.Int64Counter
	latency  metric.Float64Histogram
	failures metric.Int64Counter
	runs     metric.Int64Counter
	segments metric.Int64Histogram
}

// NewMetrics creates the instruments on m.
func NewMetrics(m metric.Meter) (*Metrics, error) {
	var (
		x    Metrics
		errs [5]error
	)
	x.calls, errs[0] = m.Int64Counter("operation.total",
		metric.WithDescription("Calls to recognition backends and media tools, by provider and status"))
	x.latency, errs[1] = m.Float64Histogram("operation.duration",
		metric.WithDescription("Duration of those calls"), metric.WithUnit("s"))
	x.failures, errs[2] = m.Int64Counter("error.total",
		metric.WithDescription("Failures by error code and component"))
	x.runs, errs[3] = m.Int64Counter("pipeline.runs",
		metric.WithDescription("Transcriptions by media kind and final state"))
	x.segments, errs[4] = m.Int64Histogram("pipeline.segments",
		metric.WithDescription("Reply segments per transcription"))
	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return &x, nil
}

// RecordOperation counts one provider call and its duration.
func (m *Metrics) RecordOperation(ctx context.Context, provider, status string, took time.Duration) {
	p := attribute.String("provider", provider)
	m.calls.Add(ctx, 1, metric.WithAttributes(p, attribute.String("status", status)))
	m.latency.Record(ctx, took.Seconds(), metric.WithAttributes(p))
}

// RecordError counts a failure.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}

// RecordPipelineRun counts a finished transcription and, when it produced
// text, how many segments it was split into.
func (m *Metrics) RecordPipelineRun(ctx context.Context, kind, state string, segments int) {
	k := attribute.String("media_kind", kind)
	m.runs.Add(ctx, 1, metric.WithAttributes(k, attribute.String("state", state)))
	if segments > 0 {
		m.segments.Record(ctx, int64(segments), metric.WithAttributes(k))
	}
}
