package rawrfetch

import (
	"context"
	"time"

	"github.com/Keksclan/rawrfetch/contextx"
	"github.com/Keksclan/rawrfetch/fetcherr"
	"github.com/Keksclan/rawrfetch/ratelimit"
	"github.com/Keksclan/rawrfetch/source"
	"github.com/Keksclan/rawrfetch/tracing"
	"github.com/Keksclan/rawrfetch/transport"
)

// Request is one outbound attempt against one mirror host.
type Request struct {
	Source  source.ContentSource
	Host    string
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// RequestFunc performs a Request and returns the raw body.
type RequestFunc func(ctx context.Context, req *Request) ([]byte, error)

// Middleware transforms a RequestFunc, allowing pre/post behavior composition.
type Middleware func(RequestFunc) RequestFunc

// Chain composes middlewares from left to right, i.e., Chain(A, B)(h) => A(B(h)).
func Chain(mw ...Middleware) Middleware {
	return func(next RequestFunc) RequestFunc {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}

// Wrap applies the middleware chain to a handler and returns the wrapped handler.
func Wrap(h RequestFunc, mw ...Middleware) RequestFunc {
	if len(mw) == 0 {
		return h
	}
	return Chain(mw...)(h)
}

// RequestIDHeader carries the request ID of the logical operation.
const RequestIDHeader = "X-Request-ID"

func transportHandler(t transport.Transport) RequestFunc {
	return func(ctx context.Context, req *Request) ([]byte, error) {
		return t.Request(ctx, req.URL, req.Headers, req.Timeout)
	}
}

// rateLimitMiddleware paces requests per source. A request that cannot get a
// token before ctx ends is reported as RateLimited so it is not retried.
func rateLimitMiddleware(limiters map[source.ContentSource]*ratelimit.Limiter) Middleware {
	return func(next RequestFunc) RequestFunc {
		return func(ctx context.Context, req *Request) ([]byte, error) {
			if l, ok := limiters[req.Source]; ok {
				if err := l.Wait(ctx); err != nil {
					if ctx.Err() != nil {
						return nil, ctx.Err()
					}
					return nil, fetcherr.Wrap(fetcherr.RateLimited, err)
				}
			}
			return next(ctx, req)
		}
	}
}

func requestIDMiddleware() Middleware {
	return func(next RequestFunc) RequestFunc {
		return func(ctx context.Context, req *Request) ([]byte, error) {
			if id := contextx.RequestIDFromContext(ctx); id != "" {
				req.Headers = setHeader(req.Headers, RequestIDHeader, id)
			}
			return next(ctx, req)
		}
	}
}

func traceHeadersMiddleware(tc *tracing.Config) Middleware {
	return func(next RequestFunc) RequestFunc {
		return func(ctx context.Context, req *Request) ([]byte, error) {
			req.Headers = tc.InjectHeaders(ctx, req.Headers)
			return next(ctx, req)
		}
	}
}

func setHeader(h map[string]string, k, v string) map[string]string {
	if h == nil {
		h = make(map[string]string, 1)
	}
	h[k] = v
	return h
}
