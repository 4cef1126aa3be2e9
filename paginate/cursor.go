// Package paginate implements a bounded, single-flight pagination cursor for
// one logical listing.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Keksclan/rawrfetch/cache"
	"github.com/Keksclan/rawrfetch/metrics"
	"github.com/Keksclan/rawrfetch/source"
)

// ErrStale is returned by a load whose result was discarded because the
// cursor was reset, refreshed or switched to another source while the load
// was in flight.
var ErrStale = errors.New("paginate: stale page discarded")

// Key identifies one logical listing on one source.
type Key struct {
	Source   source.ContentSource
	Kind     cache.EntityKind
	EntityID string
}

// Page returns the cache key of the page of limit items starting at offset.
func (k Key) Page(offset, limit int) cache.FetchKey {
	return cache.FetchKey{Source: k.Source, Kind: k.Kind, EntityID: k.EntityID, Offset: offset, Limit: limit}
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Source, k.Kind, k.EntityID)
}

// Request describes one page load.
type Request struct {
	Source source.ContentSource
	Offset int
	Limit  int
	// Generation is the cursor generation the load was started under. See
	// Cursor.IfCurrent.
	Generation uint64
}

// FetchFunc loads req.Limit items starting at req.Offset from req.Source.
type FetchFunc[T any] func(ctx context.Context, req Request) ([]T, error)

// Config sizes a cursor.
type Config struct {
	PageSize         int `yaml:"page_size" env:"PAGE_SIZE"`
	MaxBufferedItems int `yaml:"max_buffered_items" env:"MAX_BUFFERED_ITEMS"`
}

// DefaultConfig returns a page size of 50 and a 200 item buffer.
func DefaultConfig() Config {
	return Config{PageSize: 50, MaxBufferedItems: 200}
}

// State is a point-in-time copy of a cursor.
type State[T any] struct {
	Items    []T
	Offset   int
	HasMore  bool
	PageSize int
}

// Cursor tracks offset, buffered items and the has-more flag of a listing.
// Loads are serialized by an in-flight guard: a load requested while another
// is running returns 0 immediately instead of queueing.
type Cursor[T any] struct {
	mu      sync.Mutex
	key     Key
	cfg     Config
	fetch   FetchFunc[T]
	clone   func([]T) []T
	metrics *metrics.Metrics

	items   []T
	offset  int
	hasMore bool
	loading bool
	gen     uint64
}

// Option configures a Cursor.
type Option[T any] func(*Cursor[T])

// WithClone sets the copy function used by Items and State.
func WithClone[T any](fn func([]T) []T) Option[T] {
	return func(c *Cursor[T]) { c.clone = fn }
}

// WithMetrics records merged pages and stale discards.
func WithMetrics[T any](m *metrics.Metrics) Option[T] {
	return func(c *Cursor[T]) { c.metrics = m }
}

// New creates a cursor for key that loads pages with fetch. Zero config
// fields fall back to DefaultConfig.
func New[T any](key Key, cfg Config, fetch FetchFunc[T], opts ...Option[T]) *Cursor[T] {
	def := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.MaxBufferedItems <= 0 {
		cfg.MaxBufferedItems = def.MaxBufferedItems
	}
	c := &Cursor[T]{
		key:     key,
		cfg:     cfg,
		fetch:   fetch,
		clone:   func(in []T) []T { return slices.Clone(in) },
		hasMore: true,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Reset clears the buffer, rewinds the offset and drops any in-flight load.
func (c *Cursor[T]) Reset() {
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
}

func (c *Cursor[T]) resetLocked() {
	c.items = nil
	c.offset = 0
	c.hasMore = true
	c.loading = false
	c.gen++
}

// LoadPage fetches the page at the current offset with fetch, or with the
// cursor's own fetch function when fetch is nil. It returns the number of
// appended items. It is a no-op returning 0 when a load is already in
// flight or the listing is exhausted. A page shorter than the page size ends
// the listing.
func (c *Cursor[T]) LoadPage(ctx context.Context, fetch FetchFunc[T]) (int, error) {
	if fetch == nil {
		fetch = c.fetch
	}
	if fetch == nil {
		return 0, errors.New("paginate: no fetch function")
	}

	c.mu.Lock()
	if c.loading || !c.hasMore {
		c.mu.Unlock()
		return 0, nil
	}
	c.loading = true
	req := Request{
		Source:     c.key.Source,
		Offset:     c.offset,
		Limit:      c.cfg.PageSize,
		Generation: c.gen,
	}
	gen, limit := req.Generation, req.Limit
	c.mu.Unlock()

	page, err := fetch(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	// A reset since the load started already cleared the guard and owns
	// the cursor state now.
	if gen != c.gen {
		c.metrics.StaleDiscarded(string(c.key.Kind))
		return 0, ErrStale
	}
	c.loading = false

	if err != nil {
		return 0, err
	}
	if len(page) < limit {
		c.hasMore = false
	}
	if len(page) == 0 {
		return 0, nil
	}

	c.items = append(c.items, page...)
	c.offset += len(page)
	if over := len(c.items) - c.cfg.MaxBufferedItems; over > 0 {
		c.items = slices.Clone(c.items[over:])
	}
	c.metrics.PageLoaded(string(c.key.Kind))
	return len(page), nil
}

// LoadMore loads the next page with the cursor's fetch function.
func (c *Cursor[T]) LoadMore(ctx context.Context) (int, error) {
	return c.LoadPage(ctx, nil)
}

// Refresh resets the cursor and loads the first page.
func (c *Cursor[T]) Refresh(ctx context.Context) (int, error) {
	c.Reset()
	return c.LoadPage(ctx, nil)
}

// SetSource moves the listing to src. When the source changes the cursor is
// reset and any in-flight load for the old source will be discarded. It
// reports whether the source changed.
func (c *Cursor[T]) SetSource(src source.ContentSource) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key.Source == src {
		return false
	}
	c.key.Source = src
	c.resetLocked()
	return true
}

// IfCurrent calls fn with the cursor locked if gen is still the cursor's
// generation, i.e. no Reset, Refresh or source change happened since the
// load that carried gen started. It reports whether fn was called. fn must
// not call back into the cursor.
func (c *Cursor[T]) IfCurrent(gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	fn()
	return true
}

// Key returns the listing identity.
func (c *Cursor[T]) Key() Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Items returns a copy of the buffered items.
func (c *Cursor[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clone(c.items)
}

// Offset returns the offset of the next page.
func (c *Cursor[T]) Offset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// HasMore reports whether another page may exist.
func (c *Cursor[T]) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// Loading reports whether a load is in flight.
func (c *Cursor[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// State returns a consistent copy of the cursor.
func (c *Cursor[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State[T]{
		Items:    c.clone(c.items),
		Offset:   c.offset,
		HasMore:  c.hasMore,
		PageSize: c.cfg.PageSize,
	}
}
