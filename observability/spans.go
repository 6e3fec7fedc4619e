package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const scope = "github.com/hyodoblog/mojiokoshi-line-bot"

// Span attribute keys.
const (
	AttrProvider  = "provider.name"
	AttrOperation = "operation.name"
	AttrMessageID = "line.message_id"
	AttrMediaKind = "media.kind"
	AttrState     = "pipeline.state"
	AttrSegments  = "pipeline.segments"
	AttrBytes     = "media.bytes"
)

// StartSpan opens a span on the global tracer provider.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(scope).Start(ctx, name, opts...)
}

// Annotate sets key on the span in ctx. Values that are not strings,
// numbers or bools are stored as their fmt.Sprint form.
func Annotate(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attr(key, value))
}

func attr(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	}
	return attribute.String(key, fmt.Sprint(value))
}

// Fail records err on the span in ctx and marks the span failed. A nil
// err is ignored.
func Fail(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID is the hex trace ID of the span in ctx, "" outside a trace.
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
