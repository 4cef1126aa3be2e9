package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Keksclan/rawrfetch/cache"
	"github.com/Keksclan/rawrfetch/logger"
)

// DefaultKeyPrefix namespaces table snapshots in the blob store.
const DefaultKeyPrefix = "rawrfetch:cache:"

// Flusher periodically sweeps the registered cache tables and writes their
// snapshots to a BlobStore. The in-memory tables stay the source of truth;
// the store only seeds them on the next start.
type Flusher struct {
	store     BlobStore
	registry  *cache.Registry
	prefix    string
	retention time.Duration
	timeout   time.Duration
	log       logger.Logger

	mu   sync.Mutex // serializes flushes
	cron *cron.Cron
}

// FlusherOption configures a Flusher.
type FlusherOption func(*Flusher)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(p string) FlusherOption {
	return func(f *Flusher) { f.prefix = p }
}

// WithRetention drops entries older than d on every flush, regardless of
// table TTL. Zero disables the retention pass.
func WithRetention(d time.Duration) FlusherOption {
	return func(f *Flusher) { f.retention = d }
}

// WithFlushTimeout bounds one scheduled flush.
func WithFlushTimeout(d time.Duration) FlusherOption {
	return func(f *Flusher) { f.timeout = d }
}

// WithLogger sets the flusher's logger.
func WithLogger(l logger.Logger) FlusherOption {
	return func(f *Flusher) { f.log = l }
}

// NewFlusher creates a flusher for every table in reg.
func NewFlusher(store BlobStore, reg *cache.Registry, opts ...FlusherOption) *Flusher {
	f := &Flusher{
		store:    store,
		registry: reg,
		prefix:   DefaultKeyPrefix,
		timeout:  30 * time.Second,
		log:      logger.Nop(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Flush sweeps every table and saves its snapshot. It attempts every table
// and returns the joined errors.
func (f *Flusher) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for _, t := range f.registry.Tables() {
		swept := t.Sweep(f.retention)
		data, err := t.Snapshot()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := f.store.SaveBlob(ctx, f.prefix+t.Name(), string(data)); err != nil {
			errs = append(errs, fmt.Errorf("persist: flush %s: %w", t.Name(), err))
			continue
		}
		f.log.Debug("cache table flushed",
			zap.String("table", t.Name()),
			zap.Int("entries", t.Len()),
			zap.Int("swept", swept),
		)
	}
	return errors.Join(errs...)
}

// Load restores every table that has a saved snapshot and returns the total
// number of restored entries. A corrupt snapshot is logged and skipped.
func (f *Flusher) Load(ctx context.Context) (int, error) {
	total := 0
	for _, t := range f.registry.Tables() {
		blob, ok, err := f.store.LoadBlob(ctx, f.prefix+t.Name())
		if err != nil {
			return total, fmt.Errorf("persist: load %s: %w", t.Name(), err)
		}
		if !ok {
			continue
		}
		n, err := t.Restore([]byte(blob))
		if err != nil {
			f.log.Warn("discarding unreadable cache snapshot",
				zap.String("table", t.Name()),
				zap.Error(err),
			)
			continue
		}
		total += n
	}
	return total, nil
}

// Start schedules Flush with a cron spec. Six-field specs with seconds and
// descriptors such as "@every 5m" are accepted.
func (f *Flusher) Start(spec string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cron != nil {
		return errors.New("persist: flusher already started")
	}

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, f.scheduledFlush); err != nil {
		return fmt.Errorf("persist: schedule flush %q: %w", spec, err)
	}
	c.Start()
	f.cron = c

	f.log.Info("cache flush scheduled", zap.String("spec", spec))
	return nil
}

func (f *Flusher) scheduledFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	if err := f.Flush(ctx); err != nil {
		f.log.Error("scheduled cache flush failed", zap.Error(err))
	}
}

// Stop stops the schedule and waits for a running flush, or for ctx.
func (f *Flusher) Stop(ctx context.Context) error {
	f.mu.Lock()
	c := f.cron
	f.cron = nil
	f.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
