package tracing

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// newTestConfig returns a Config backed by an in-memory span recorder.
func newTestConfig(t *testing.T) (*Config, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	return &Config{
		TracerProvider: tp,
		Propagators:    propagation.TraceContext{},
	}, rec
}

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartAttempt_RecordsAttributes(t *testing.T) {
	cfg, rec := newTestConfig(t)

	_, span := StartAttempt(t.Context(), cfg.Tracer(), "secondary", "mirror-1", 3)
	End(span, "", nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "rawrfetch.attempt" {
		t.Fatalf("unexpected span name %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindClient {
		t.Fatalf("expected client span, got %v", s.SpanKind())
	}
	if v, ok := attr(s.Attributes(), "rawrfetch.attempt"); !ok || v.AsInt64() != 3 {
		t.Fatalf("missing attempt attribute: %v", s.Attributes())
	}
	if v, ok := attr(s.Attributes(), "server.address"); !ok || v.AsString() != "mirror-1" {
		t.Fatalf("missing host attribute: %v", s.Attributes())
	}
	if s.Status().Code != codes.Ok {
		t.Fatalf("expected Ok status, got %v", s.Status().Code)
	}
}

func TestEnd_RecordsError(t *testing.T) {
	cfg, rec := newTestConfig(t)

	_, span := StartOperation(t.Context(), cfg.Tracer(), "creator")
	End(span, "timeout", errors.New("deadline"))

	s := rec.Ended()[0]
	if s.Name() != "rawrfetch.creator" {
		t.Fatalf("unexpected span name %q", s.Name())
	}
	if s.Status().Code != codes.Error {
		t.Fatalf("expected Error status, got %v", s.Status().Code)
	}
	if v, ok := attr(s.Attributes(), "rawrfetch.error_kind"); !ok || v.AsString() != "timeout" {
		t.Fatalf("missing error kind: %v", s.Attributes())
	}
	if len(s.Events()) == 0 {
		t.Fatal("expected RecordError to add an event")
	}
}

func TestInjectHeaders_PropagatesParent(t *testing.T) {
	cfg, _ := newTestConfig(t)

	ctx, span := StartOperation(t.Context(), cfg.Tracer(), "posts")
	defer span.End()

	h := cfg.InjectHeaders(ctx, nil)
	if h["traceparent"] == "" {
		t.Fatalf("expected traceparent header, got %v", h)
	}
}

func TestNilConfigUsesGlobal(t *testing.T) {
	var cfg *Config
	if cfg.Tracer() == nil {
		t.Fatal("expected a tracer from the global provider")
	}
	h := cfg.InjectHeaders(t.Context(), map[string]string{"Accept": "application/json"})
	if h["Accept"] != "application/json" {
		t.Fatal("existing headers must be kept")
	}
}
