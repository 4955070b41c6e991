package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry records ended spans in memory.
type TestTelemetry struct {
	*Telemetry

	Recorder *tracetest.SpanRecorder
}

// NewTestTelemetry returns an enabled Telemetry whose tracer provider feeds
// Recorder. Nothing is installed globally.
func NewTestTelemetry() *TestTelemetry {
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	rec := tracetest.NewSpanRecorder()
	tel := &Telemetry{
		config:         cfg,
		tracerProvider: trace.NewTracerProvider(trace.WithSpanProcessor(rec)),
	}
	tel.healthy.Store(true)

	return &TestTelemetry{Telemetry: tel, Recorder: rec}
}

// SpanNames lists ended spans in the order they ended.
func (t *TestTelemetry) SpanNames() []string {
	spans := t.Recorder.Ended()
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name()
	}
	return names
}

// LastSpan returns the most recently ended span called name, or nil.
func (t *TestTelemetry) LastSpan(name string) trace.ReadOnlySpan {
	spans := t.Recorder.Ended()
	for i := len(spans) - 1; i >= 0; i-- {
		if spans[i].Name() == name {
			return spans[i]
		}
	}
	return nil
}

func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	if t.LastSpan(name) == nil {
		tb.Errorf("span %q not recorded, got: %v", name, t.SpanNames())
	}
}

// AssertSpanAttribute checks key on the latest span called name.
func (t *TestTelemetry) AssertSpanAttribute(tb testing.TB, name, key string, want any) {
	tb.Helper()
	span := t.LastSpan(name)
	if span == nil {
		tb.Fatalf("span %q not recorded, got: %v", name, t.SpanNames())
	}
	for _, kv := range span.Attributes() {
		if string(kv.Key) != key {
			continue
		}
		if got := attrValue(kv.Value); got != want {
			tb.Errorf("span %q attribute %q = %v, want %v", name, key, got, want)
		}
		return
	}
	tb.Errorf("span %q has no attribute %q", name, key)
}

func attrValue(v attribute.Value) any {
	switch v.Type() {
	case attribute.STRING:
		return v.AsString()
	case attribute.INT64:
		return v.AsInt64()
	case attribute.FLOAT64:
		return v.AsFloat64()
	case attribute.BOOL:
		return v.AsBool()
	default:
		return v.AsInterface()
	}
}
