package rawrfetch

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/Keksclan/rawrfetch/logger"
	"github.com/Keksclan/rawrfetch/persist"
	"github.com/Keksclan/rawrfetch/retry"
	"github.com/Keksclan/rawrfetch/transport"
)

// settings holds the internal configuration assembled via functional options.
type settings struct {
	transport   transport.Transport
	store       persist.BlobStore
	storeSet    bool
	log         logger.Logger
	tp          trace.TracerProvider
	reg         prometheus.Registerer
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
	observer    retry.Observer
	middlewares []Middleware
}

// Option configures an Engine.
type Option func(*settings)

// WithTransport replaces the HTTP transport built from the configuration.
func WithTransport(t transport.Transport) Option {
	return func(s *settings) { s.transport = t }
}

// WithBlobStore replaces the persistence backend selected by the
// configuration. A nil store disables persistence.
func WithBlobStore(store persist.BlobStore) Option {
	return func(s *settings) {
		s.store = store
		s.storeSet = true
	}
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithTracerProvider sets the OpenTelemetry provider for fetch spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *settings) { s.tp = tp }
}

// WithRegisterer registers the engine's collectors on reg instead of a
// private registry. MetricsHandler serves reg when it is also a Gatherer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *settings) { s.reg = reg }
}

// WithClock replaces time.Now for cache ages and history timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithSleep replaces the wait between retry attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *settings) { s.sleep = fn }
}

// WithObserver is notified before every retry wait, e.g. to show a
// "still retrying" message.
func WithObserver(o retry.Observer) Option {
	return func(s *settings) { s.observer = o }
}

// WithMiddleware appends request middlewares. They run inside the built-in
// rate limiting, request ID and trace propagation middlewares, closest to
// the transport.
func WithMiddleware(mw ...Middleware) Option {
	return func(s *settings) {
		s.middlewares = append(s.middlewares, mw...)
	}
}
