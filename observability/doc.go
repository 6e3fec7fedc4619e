// Package observability wires OpenTelemetry tracing and metrics over OTLP
// HTTP and offers the span and instrument helpers used by the provider
// middleware and the transcription pipeline.
//
//	shutdown, err := observability.Setup(ctx, cfg, observability.Resource{ServiceName: "mojiokoshi"})
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "pipeline.transcode")
//	defer span.End()
//
// With observability disabled the global no-op providers stay in place, so
// spans and instruments are always safe to use.
package observability
