package rawrfetch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Keksclan/rawrfetch/contextx"
	"github.com/Keksclan/rawrfetch/fetcherr"
	"github.com/Keksclan/rawrfetch/retry"
	"github.com/Keksclan/rawrfetch/source"
	"github.com/Keksclan/rawrfetch/tracing"
)

// fetch runs one logical request against src under the source's retry
// policy. The body is decoded inside the attempt, so a malformed body is
// classified and retried like any other failure.
func fetch[T any](ctx context.Context, e *Engine, src source.ContentSource, path string, decode func([]byte) (T, error)) (T, error) {
	p := e.cfg.Policy(src)
	hosts := e.resolver.Hosts(src)
	timeout := e.cfg.Transport.Timeout

	return retry.Execute(ctx, e.exec, p, hosts, func(ctx context.Context, host string) (T, error) {
		var zero T
		body, err := e.request(ctx, &Request{
			Source:  src,
			Host:    host,
			URL:     hostURL(e.cfg.Transport.Scheme, host, path),
			Timeout: timeout,
		})
		if err != nil {
			return zero, err
		}
		return decode(body)
	})
}

// operation opens the span and request scope of one engine operation. The
// returned finish func ends the span with the classification of err.
func (e *Engine) operation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	ctx, reqID := contextx.EnsureRequestID(ctx)
	attrs = append(attrs, attribute.String("rawrfetch.request_id", reqID))
	ctx, span := tracing.StartOperation(ctx, e.tracer, name, attrs...)
	return ctx, func(err error) {
		kind := ""
		if err != nil {
			kind = fetcherr.KindOf(err).String()
		}
		tracing.End(span, kind, err)
	}
}
