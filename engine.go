// Package rawrfetch is a fetch and cache engine for a content catalog split
// across two interchangeable backend sources. It resolves each service to a
// source and its mirror hosts, retries failed requests with a per-source
// backoff policy, pages through listings with a bounded buffer, and keeps
// TTL caches of creators, post pages and searches.
//
//	eng, err := rawrfetch.New(cfg)
//	if err != nil { ... }
//	defer eng.Close(ctx)
//
//	creator, err := eng.Creator(ctx, "patreon", "12345")
//	n, err := eng.LoadMorePosts(ctx, "patreon", "12345")
package rawrfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Keksclan/rawrfetch/breaker"
	"github.com/Keksclan/rawrfetch/cache"
	"github.com/Keksclan/rawrfetch/config"
	"github.com/Keksclan/rawrfetch/logger"
	"github.com/Keksclan/rawrfetch/metrics"
	"github.com/Keksclan/rawrfetch/model"
	"github.com/Keksclan/rawrfetch/paginate"
	"github.com/Keksclan/rawrfetch/persist"
	"github.com/Keksclan/rawrfetch/ratelimit"
	"github.com/Keksclan/rawrfetch/retry"
	"github.com/Keksclan/rawrfetch/search"
	"github.com/Keksclan/rawrfetch/source"
	"github.com/Keksclan/rawrfetch/tracing"
)

// Engine is the fetch orchestrator. It owns every cache table and cursor it
// hands out; there is no package-level state. All methods are safe for
// concurrent use.
type Engine struct {
	cfg      *config.Config
	log      logger.Logger
	resolver *source.Resolver
	exec     *retry.Executor
	request  RequestFunc
	tracer   trace.Tracer
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	now      func() time.Time

	registry *cache.Registry
	creators *cache.Table[cache.FetchKey, model.Creator]
	pages    *cache.Table[cache.FetchKey, []model.Post]
	posts    *cache.Table[cache.FetchKey, model.Post]
	searches *cache.Table[cache.FetchKey, []model.Creator]

	strategy *search.Strategy
	history  *search.History
	store    persist.BlobStore
	flusher  *persist.Flusher
	closers  []func() error

	mu       sync.Mutex
	active   source.ContentSource
	listings map[string]*paginate.Cursor[model.Post]
	recent   *paginate.Cursor[model.Post]
	closed   bool
}

// New creates an Engine from cfg. A nil cfg uses config.Default().
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var s settings
	for _, o := range opts {
		o(&s)
	}
	if s.now == nil {
		s.now = time.Now
	}

	e := &Engine{
		cfg:      cfg,
		now:      s.now,
		active:   source.Primary,
		listings: make(map[string]*paginate.Cursor[model.Post]),
	}

	e.log = s.log
	if e.log == nil {
		zl, err := logger.New(&cfg.Logger)
		if err != nil {
			return nil, err
		}
		e.log = zl
		e.closers = append(e.closers, func() error {
			_ = zl.Sync()
			return nil
		})
	}

	res, err := cfg.Resolver()
	if err != nil {
		return nil, err
	}
	e.resolver = res

	reg := s.reg
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, e.gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		e.gatherer = g
	} else {
		e.gatherer = prometheus.DefaultGatherer
	}
	e.metrics = metrics.New(reg)

	tc := &tracing.Config{TracerProvider: s.tp}
	e.tracer = tc.Tracer()

	execOpts := []retry.Option{
		retry.WithClock(s.now),
		retry.WithHostBreakers(breaker.NewHosts(cfg.Breaker)),
		retry.WithTracer(e.tracer),
		retry.WithMetrics(e.metrics),
		retry.WithLogger(e.log),
	}
	if s.sleep != nil {
		execOpts = append(execOpts, retry.WithSleep(s.sleep))
	}
	if s.observer != nil {
		execOpts = append(execOpts, retry.WithObserver(s.observer))
	}
	e.exec = retry.NewExecutor(execOpts...)

	t := s.transport
	if t == nil {
		h, memo, err := defaultTransport(cfg.Transport)
		if err != nil {
			return nil, fmt.Errorf("rawrfetch: build transport: %w", err)
		}
		if memo != nil {
			e.closers = append(e.closers, func() error {
				memo.Close()
				return nil
			})
		}
		t = h
	}
	limiters := map[source.ContentSource]*ratelimit.Limiter{}
	for _, src := range source.All() {
		sc := cfg.Source(src)
		if sc.RateLimit > 0 {
			limiters[src] = ratelimit.NewLimiter(sc.RateLimit, sc.Burst)
		}
	}
	mws := []Middleware{
		rateLimitMiddleware(limiters),
		requestIDMiddleware(),
		traceHeadersMiddleware(tc),
	}
	e.request = Wrap(transportHandler(t), append(mws, s.middlewares...)...)

	e.buildTables()

	e.store = s.store
	if !s.storeSet {
		e.store = defaultStore(cfg.Persist)
	}
	if c, ok := e.store.(io.Closer); ok && !s.storeSet {
		e.closers = append(e.closers, c.Close)
	}
	if e.store != nil {
		e.flusher = persist.NewFlusher(e.store, e.registry,
			persist.WithRetention(cfg.Persist.Retention),
			persist.WithLogger(e.log),
		)
	}

	e.history = search.NewHistory(e.store, cfg.Search.HistorySize)
	e.strategy = search.New(e,
		search.WithTopN(cfg.Search.TopN),
		search.WithLogger(e.log),
		search.WithHistory(e.history),
	)
	return e, nil
}

func (e *Engine) buildTables() {
	c := e.cfg.Cache
	e.creators = cache.NewTable(TableCreators, c.Creators,
		cache.WithClock[cache.FetchKey, model.Creator](e.now),
		cache.WithMetrics[cache.FetchKey, model.Creator](e.metrics),
	)
	e.pages = cache.NewTable(TablePages, c.Posts,
		cache.WithClone[cache.FetchKey](model.ClonePosts),
		cache.WithClock[cache.FetchKey, []model.Post](e.now),
		cache.WithMetrics[cache.FetchKey, []model.Post](e.metrics),
	)
	e.posts = cache.NewTable(TablePosts, c.Post,
		cache.WithClone[cache.FetchKey](model.Post.Clone),
		cache.WithClock[cache.FetchKey, model.Post](e.now),
		cache.WithMetrics[cache.FetchKey, model.Post](e.metrics),
	)
	e.searches = cache.NewTable(TableSearches, c.Searches,
		cache.WithClone[cache.FetchKey](model.CloneCreators),
		cache.WithClock[cache.FetchKey, []model.Creator](e.now),
		cache.WithMetrics[cache.FetchKey, []model.Creator](e.metrics),
	)
	e.registry = cache.NewRegistry()
	e.registry.Register(e.creators, e.pages, e.posts, e.searches)
}

// Start restores persisted state when configured and schedules periodic
// flushes. Without a blob store it does nothing.
func (e *Engine) Start(ctx context.Context) error {
	if e.flusher == nil {
		return nil
	}
	if e.cfg.Persist.RestoreOnStart {
		if _, err := e.Restore(ctx); err != nil {
			return err
		}
	}
	if e.cfg.Persist.FlushSchedule == "" {
		return nil
	}
	return e.flusher.Start(e.cfg.Persist.FlushSchedule)
}

// Flush sweeps the cache tables and writes them to the blob store.
func (e *Engine) Flush(ctx context.Context) error {
	if e.flusher == nil {
		return nil
	}
	return e.flusher.Flush(ctx)
}

// Restore loads persisted cache tables and search history. It returns the
// number of restored cache entries.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	if e.flusher == nil {
		return 0, nil
	}
	n, err := e.flusher.Load(ctx)
	if err != nil {
		return n, err
	}
	if err := e.history.Load(ctx); err != nil {
		e.log.Warn("discarding unreadable search history", zap.Error(err))
	}
	e.log.Info("cache restored", zap.Int("entries", n))
	return n, nil
}

// Close stops scheduled flushing, writes a final flush and releases owned
// resources. It is safe to call more than once.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	var errs []error
	if e.flusher != nil {
		if err := e.flusher.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := e.flusher.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MetricsHandler returns an http.Handler that serves the engine's
// Prometheus metrics.
func (e *Engine) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(e.gatherer, promhttp.HandlerOpts{})
}

// Config returns the engine configuration. It must not be modified.
func (e *Engine) Config() *config.Config { return e.cfg }

// Resolver returns the source resolver.
func (e *Engine) Resolver() *source.Resolver { return e.resolver }

// Registry returns the registry of cache tables.
func (e *Engine) Registry() *cache.Registry { return e.registry }
