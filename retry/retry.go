// Package retry drives the attempt loop of catalog fetches: it cycles through
// mirror hosts, classifies every failure, decides between retry and abort,
// and waits according to a per-source backoff policy.
package retry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/Keksclan/rawrfetch/breaker"
	"github.com/Keksclan/rawrfetch/contextx"
	"github.com/Keksclan/rawrfetch/fetcherr"
	"github.com/Keksclan/rawrfetch/logger"
	"github.com/Keksclan/rawrfetch/metrics"
	"github.com/Keksclan/rawrfetch/tracing"
)

// Op is one attempt of an operation against host.
type Op func(ctx context.Context, host string) error

// Notice describes a failed attempt that is about to be retried.
type Notice struct {
	Policy      string
	Attempt     int
	MaxAttempts int
	Host        string
	Delay       time.Duration
	Err         *fetcherr.Error
}

// Message is the "still retrying" text shown during the retry window.
func (n Notice) Message() string {
	return fetcherr.RetryingMessage(n.Attempt, n.MaxAttempts, n.Err)
}

// Observer is notified before every retry wait.
type Observer interface {
	OnRetry(ctx context.Context, n Notice)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, n Notice)

func (f ObserverFunc) OnRetry(ctx context.Context, n Notice) { f(ctx, n) }

// Executor runs operations under a Policy. It keeps no per-call state, so one
// Executor serves any number of concurrent operations.
type Executor struct {
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	hosts    *breaker.Hosts
	tracer   trace.Tracer
	metrics  *metrics.Metrics
	log      logger.Logger
	observer Observer
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleep replaces the wait between attempts. Tests use it to record
// delays without sleeping.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) { e.sleep = fn }
}

// WithClock replaces time.Now for latency measurements.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithHostBreakers steers attempts away from hosts whose breaker is open.
func WithHostBreakers(h *breaker.Hosts) Option {
	return func(e *Executor) { e.hosts = h }
}

// WithTracer sets the tracer used for attempt spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

// WithMetrics records attempt outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithObserver registers a retry observer.
func WithObserver(o Observer) Option {
	return func(e *Executor) { e.observer = o }
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		sleep:  sleepCtx,
		now:    time.Now,
		tracer: noop.NewTracerProvider().Tracer(""),
		log:    logger.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run invokes op up to p.MaxAttempts times. Attempt n targets
// hosts[(n-1) mod len(hosts)], skipping hosts with an open breaker when
// breakers are configured. Every failure is classified; NotFound and
// RateLimited abort immediately, other kinds follow p. Between attempts Run
// waits p.Backoff.Delay(n); cancellation of ctx aborts the wait.
//
// The returned error is nil or a *fetcherr.Error with Attempts set and
// Exhausted marking that every attempt was used.
func (e *Executor) Run(ctx context.Context, p Policy, hosts []string, op Op) error {
	attempts := p.attempts()
	reqID := contextx.RequestIDFromContext(ctx)

	for i := range attempts {
		attempt := i + 1
		host := e.pick(hosts, i)

		actx, span := tracing.StartAttempt(ctx, e.tracer, p.Name, host, attempt)
		start := e.now()
		err := op(actx, host)
		elapsed := e.now().Sub(start)

		if err == nil {
			tracing.End(span, "", nil)
			e.metrics.ObserveAttempt(p.Name, "ok", elapsed)
			e.record(host, true)
			return nil
		}

		fe := e.classify(ctx, p, err)
		fe.Attempts = attempt
		tracing.End(span, fe.Kind.String(), err)
		e.metrics.ObserveAttempt(p.Name, fe.Kind.String(), elapsed)
		if fe.Kind != fetcherr.NotFound {
			e.record(host, false)
		}

		if !fe.Retryable {
			e.log.Debug("fetch aborted",
				zap.String("request_id", reqID),
				zap.String("policy", p.Name),
				zap.String("host", host),
				zap.Int("attempt", attempt),
				zap.Stringer("kind", fe.Kind),
				zap.Error(err),
			)
			return fe
		}

		if attempt == attempts {
			fe.Exhausted = true
			e.metrics.GaveUp(p.Name, fe.Kind.String())
			e.log.Warn("fetch gave up",
				zap.String("request_id", reqID),
				zap.String("policy", p.Name),
				zap.Int("attempts", attempts),
				zap.Stringer("kind", fe.Kind),
				zap.Error(err),
			)
			return fe
		}

		delay := p.Backoff.Delay(attempt)
		e.log.Debug("fetch retrying",
			zap.String("request_id", reqID),
			zap.String("policy", p.Name),
			zap.String("host", host),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Stringer("kind", fe.Kind),
			zap.Error(err),
		)
		if e.observer != nil {
			e.observer.OnRetry(ctx, Notice{
				Policy:      p.Name,
				Attempt:     attempt,
				MaxAttempts: attempts,
				Host:        host,
				Delay:       delay,
				Err:         fe,
			})
		}

		if err := e.sleep(ctx, delay); err != nil {
			ce := fetcherr.Classify(err)
			out := *ce
			out.Retryable = false
			out.Attempts = attempt
			return &out
		}
	}

	// Unreachable: the loop always returns on the last attempt.
	return nil
}

// Execute is the typed form of Run: op produces a value on success.
func Execute[T any](ctx context.Context, e *Executor, p Policy, hosts []string, op func(ctx context.Context, host string) (T, error)) (T, error) {
	var out T
	err := e.Run(ctx, p, hosts, func(ctx context.Context, host string) error {
		v, err := op(ctx, host)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// classify returns a private copy of the classified error with retryability
// decided by p. A cancelled parent context is never retried.
func (e *Executor) classify(ctx context.Context, p Policy, err error) *fetcherr.Error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		out := *fetcherr.Classify(ctxErr)
		out.Retryable = false
		return &out
	}
	out := *fetcherr.Classify(err)
	out.Retryable = p.shouldRetry(&out)
	return &out
}

func (e *Executor) pick(hosts []string, i int) string {
	if len(hosts) == 0 {
		return ""
	}
	if e.hosts != nil {
		return e.hosts.Pick(hosts, i)
	}
	return hosts[i%len(hosts)]
}

func (e *Executor) record(host string, ok bool) {
	if e.hosts != nil {
		e.hosts.Record(host, ok)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
