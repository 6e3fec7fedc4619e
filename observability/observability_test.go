package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans routes the global tracer provider into a recorder for the
// duration of the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestConfig(t *testing.T) {
	var def Config
	def.ApplyDefaults()
	if def.Endpoint != "localhost:4318" || def.SampleRate != 1 || def.MetricInterval != 15*time.Second {
		t.Errorf("defaults = %+v", def)
	}

	tests := []struct {
		name string
		cfg  Config
		bad  string
	}{
		{"disabled without endpoint", Config{}, ""},
		{"enabled", Config{Enabled: true, Endpoint: "otel-collector:4318", SampleRate: 0.25}, ""},
		{"rate above one", Config{SampleRate: 1.5}, "sample_rate"},
		{"enabled without endpoint", Config{Enabled: true, SampleRate: 1}, "endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.bad == "" {
				if err != nil {
					t.Errorf("unexpected %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.bad) {
				t.Errorf("err = %v, want mention of %s", err, tt.bad)
			}
		})
	}
}

func TestSetup(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, Resource{ServiceName: "mojiokoshi"})
	if err != nil || shutdown(context.Background()) != nil {
		t.Fatalf("disabled setup: %v", err)
	}

	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})
	cfg := Config{Enabled: true, Insecure: true, Endpoint: "127.0.0.1:1"}
	cfg.ApplyDefaults()
	shutdown, err = Setup(context.Background(), cfg, Resource{ServiceName: "mojiokoshi", ServiceVersion: "dev", Environment: "test"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Error("tracer provider not installed")
	}
	// Nothing listens on the endpoint, so the final flush may fail.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}

func TestSampler(t *testing.T) {
	for rate, prefix := range map[float64]string{
		1:    "ParentBased{root:AlwaysOnSampler",
		0.25: "ParentBased{root:TraceIDRatioBased{0.25}",
		0:    "AlwaysOffSampler",
		-1:   "AlwaysOffSampler",
	} {
		if got := sampler(rate).Description(); !strings.HasPrefix(got, prefix) {
			t.Errorf("sampler(%v) = %q, want prefix %q", rate, got, prefix)
		}
	}
}

func TestSpans(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartSpan(context.Background(), "pipeline.transcode")
	if TraceID(ctx) == "" {
		t.Error("no trace id inside a span")
	}
	Annotate(ctx, AttrMessageID, "325708")
	Annotate(ctx, AttrSegments, 3)
	Annotate(ctx, AttrBytes, int64(2048))
	Annotate(ctx, "duration_seconds", 59.5)
	Annotate(ctx, "mono", true)
	Annotate(ctx, AttrState, time.Second)
	Fail(ctx, nil)
	Fail(ctx, errors.New("ffmpeg exited 1"))
	span.End()

	got := rec.Ended()
	if len(got) != 1 || got[0].Name() != "pipeline.transcode" {
		t.Fatalf("spans = %v", got)
	}
	want := map[attribute.Key]attribute.Value{
		AttrMessageID:      attribute.StringValue("325708"),
		AttrSegments:       attribute.Int64Value(3),
		AttrBytes:          attribute.Int64Value(2048),
		"duration_seconds": attribute.Float64Value(59.5),
		"mono":             attribute.BoolValue(true),
		AttrState:          attribute.StringValue("1s"),
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range got[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("%s = %v, want %v", k, attrs[k].Emit(), v.Emit())
		}
	}
	if got[0].Status().Code != codes.Error || len(got[0].Events()) != 1 {
		t.Errorf("status %v, %d events", got[0].Status(), len(got[0].Events()))
	}
}

func TestSpanHelpersOutsideTrace(t *testing.T) {
	ctx := context.Background()
	Annotate(ctx, "k", "v")
	Fail(ctx, errors.New("x"))
	if TraceID(ctx) != "" {
		t.Error("trace id outside a span")
	}
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	m.RecordOperation(ctx, "speech", "ok", 150*time.Millisecond)
	m.RecordError(ctx, "PROBE_FAILED", "pipeline")
	m.RecordPipelineRun(ctx, "audio", "chunked", 2)
	m.RecordPipelineRun(ctx, "video", "rejected", 0)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	series := map[string]int{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				series[md.Name] = len(data.DataPoints)
			case metricdata.Histogram[int64]:
				series[md.Name] = len(data.DataPoints)
			case metricdata.Histogram[float64]:
				series[md.Name] = len(data.DataPoints)
			}
		}
	}
	want := map[string]int{"operation.total": 1, "operation.duration": 1, "error.total": 1, "pipeline.runs": 2, "pipeline.segments": 1}
	for name, n := range want {
		if series[name] != n {
			t.Errorf("%s: %d series, want %d", name, series[name], n)
		}
	}
}
