// Package tracing wraps catalog fetches in OpenTelemetry spans and propagates
// trace context into outbound request headers. It is optional: a nil *Config
// falls back to the global provider, which is a no-op unless installed.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Keksclan/rawrfetch"

// Config holds the OpenTelemetry configuration used by the engine.
type Config struct {
	// TracerProvider supplies the Tracer used to create spans. When nil the
	// global otel.GetTracerProvider() is used.
	TracerProvider trace.TracerProvider

	// Propagators injects trace context into request headers.
	// When nil the global otel.GetTextMapPropagator() is used.
	Propagators propagation.TextMapPropagator
}

// Tracer returns a configured [trace.Tracer].
func (c *Config) Tracer() trace.Tracer {
	var tp trace.TracerProvider
	if c != nil {
		tp = c.TracerProvider
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentationName)
}

func (c *Config) propagators() propagation.TextMapPropagator {
	if c != nil && c.Propagators != nil {
		return c.Propagators
	}
	return otel.GetTextMapPropagator()
}

// StartOperation opens the span covering one logical engine operation, such
// as a creator lookup or a page load.
func StartOperation(ctx context.Context, tr trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tr.Start(ctx, "rawrfetch."+name, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))
}

// StartAttempt opens a client span for one attempt against host.
func StartAttempt(ctx context.Context, tr trace.Tracer, policy, host string, attempt int) (context.Context, trace.Span) {
	return tr.Start(ctx, "rawrfetch.attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rawrfetch.policy", policy),
			attribute.String("server.address", host),
			attribute.Int("rawrfetch.attempt", attempt),
		),
	)
}

// End records err (if any) and its classification on span, then ends it.
func End(span trace.Span, kind string, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("rawrfetch.error_kind", kind))
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHeaders writes the trace context of ctx into headers and returns it.
// A nil map is allocated.
func (c *Config) InjectHeaders(ctx context.Context, headers map[string]string) map[string]string {
	if headers == nil {
		headers = make(map[string]string)
	}
	c.propagators().Inject(ctx, propagation.MapCarrier(headers))
	return headers
}
