package cache

import (
	"container/list"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Keksclan/rawrfetch/metrics"
	"github.com/Keksclan/rawrfetch/source"
)

// Table is a TTL key-value table with oldest-insertion eviction. Values are
// cloned on the way in and on the way out, so callers never share memory
// with stored entries. All methods are safe for concurrent use. Lookups
// share a read lock, so hits on different keys never wait for each other;
// writes hold the lock for O(1) apart from Values, Sweep, Restore and
// InvalidateFunc.
type Table[K comparable, V any] struct {
	name    string
	cfg     TableConfig
	clone   func(V) V
	now     func() time.Time
	metrics *metrics.Metrics

	mu    sync.RWMutex
	items map[K]*list.Element
	order *list.List // front is the oldest insertion
}

type item[K comparable, V any] struct {
	key   K
	entry Entry[V]
}

// TableOption configures a Table.
type TableOption[K comparable, V any] func(*Table[K, V])

// WithClone sets the deep-copy function applied to values. Without it values
// are copied by assignment, which is enough for types without references.
func WithClone[K comparable, V any](fn func(V) V) TableOption[K, V] {
	return func(t *Table[K, V]) { t.clone = fn }
}

// WithClock replaces time.Now.
func WithClock[K comparable, V any](now func() time.Time) TableOption[K, V] {
	return func(t *Table[K, V]) { t.now = now }
}

// WithMetrics records lookups, evictions and size.
func WithMetrics[K comparable, V any](m *metrics.Metrics) TableOption[K, V] {
	return func(t *Table[K, V]) { t.metrics = m }
}

// NewTable creates an empty table.
func NewTable[K comparable, V any](name string, cfg TableConfig, opts ...TableOption[K, V]) *Table[K, V] {
	t := &Table[K, V]{
		name:  name,
		cfg:   cfg,
		clone: func(v V) V { return v },
		now:   time.Now,
		items: make(map[K]*list.Element),
		order: list.New(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Name returns the table name.
func (t *Table[K, V]) Name() string { return t.name }

// Config returns the table sizing.
func (t *Table[K, V]) Config() TableConfig { return t.cfg }

// Get returns the value stored under key. Expired entries are removed and
// reported as a miss.
func (t *Table[K, V]) Get(key K) (V, bool) {
	var zero V
	now := t.now()

	t.mu.RLock()
	el, ok := t.items[key]
	if !ok {
		t.mu.RUnlock()
		t.metrics.CacheLookup(t.name, "miss")
		return zero, false
	}
	entry := el.Value.(*item[K, V]).entry
	t.mu.RUnlock()

	if t.expired(entry, now) {
		t.removeExpired(key, el, now)
		t.metrics.CacheLookup(t.name, "expired")
		return zero, false
	}

	t.metrics.CacheLookup(t.name, "hit")
	return t.clone(entry.Value), true
}

// removeExpired drops el if it is still the entry stored under key and still
// expired; a concurrent Put may have replaced it since it was read.
func (t *Table[K, V]) removeExpired(key K, el *list.Element, now time.Time) {
	t.mu.Lock()
	cur, ok := t.items[key]
	if !ok || cur != el || !t.expired(el.Value.(*item[K, V]).entry, now) {
		t.mu.Unlock()
		return
	}
	t.removeLocked(el)
	n := len(t.items)
	t.mu.Unlock()

	t.metrics.CacheEvicted(t.name, "ttl", 1)
	t.metrics.CacheSize(t.name, n)
}

// Put stores value under key with InsertedAt = now, replacing any previous
// entry. When the table is over capacity the oldest insertions are evicted.
func (t *Table[K, V]) Put(key K, value V, src source.ContentSource) {
	entry := Entry[V]{Value: t.clone(value), InsertedAt: t.now(), Source: src}

	t.mu.Lock()
	t.insertLocked(key, entry)
	evicted := t.evictLocked()
	n := len(t.items)
	t.mu.Unlock()

	t.metrics.CacheEvicted(t.name, "capacity", evicted)
	t.metrics.CacheSize(t.name, n)
}

// Invalidate removes key. It reports whether an entry was present.
func (t *Table[K, V]) Invalidate(key K) bool {
	t.mu.Lock()
	el, ok := t.items[key]
	if ok {
		t.removeLocked(el)
	}
	n := len(t.items)
	t.mu.Unlock()

	t.metrics.CacheSize(t.name, n)
	return ok
}

// InvalidateFunc removes every entry for which match returns true and
// returns how many were removed.
func (t *Table[K, V]) InvalidateFunc(match func(key K, src source.ContentSource) bool) int {
	t.mu.Lock()
	removed := 0
	for el := t.order.Front(); el != nil; {
		next := el.Next()
		it := el.Value.(*item[K, V])
		if match(it.key, it.entry.Source) {
			t.removeLocked(el)
			removed++
		}
		el = next
	}
	n := len(t.items)
	t.mu.Unlock()

	t.metrics.CacheSize(t.name, n)
	return removed
}

// Clear removes every entry.
func (t *Table[K, V]) Clear() {
	t.mu.Lock()
	t.items = make(map[K]*list.Element)
	t.order.Init()
	t.mu.Unlock()

	t.metrics.CacheSize(t.name, 0)
}

// Len returns the number of stored entries, expired ones included until they
// are read or swept.
func (t *Table[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Values returns clones of all live values, oldest insertion first. Expired
// entries met on the way are removed.
func (t *Table[K, V]) Values() []V {
	now := t.now()

	t.mu.Lock()
	live := make([]V, 0, len(t.items))
	expired := 0
	for el := t.order.Front(); el != nil; {
		next := el.Next()
		it := el.Value.(*item[K, V])
		if t.expired(it.entry, now) {
			t.removeLocked(el)
			expired++
		} else {
			live = append(live, it.entry.Value)
		}
		el = next
	}
	n := len(t.items)
	t.mu.Unlock()

	t.metrics.CacheEvicted(t.name, "ttl", expired)
	t.metrics.CacheSize(t.name, n)

	for i := range live {
		live[i] = t.clone(live[i])
	}
	return live
}

// Sweep removes every expired entry and, when retention is positive, every
// entry older than retention. It returns the number of removed entries.
func (t *Table[K, V]) Sweep(retention time.Duration) int {
	now := t.now()

	t.mu.Lock()
	removed := 0
	for el := t.order.Front(); el != nil; {
		next := el.Next()
		it := el.Value.(*item[K, V])
		age := now.Sub(it.entry.InsertedAt)
		if t.expired(it.entry, now) || (retention > 0 && age > retention) {
			t.removeLocked(el)
			removed++
		}
		el = next
	}
	n := len(t.items)
	t.mu.Unlock()

	t.metrics.CacheEvicted(t.name, "sweep", removed)
	t.metrics.CacheSize(t.name, n)
	return removed
}

type snapshotEntry[K comparable, V any] struct {
	Key        K                    `json:"key"`
	Value      V                    `json:"value"`
	InsertedAt time.Time            `json:"inserted_at"`
	Source     source.ContentSource `json:"source"`
}

// Snapshot encodes the live entries as JSON, oldest insertion first.
func (t *Table[K, V]) Snapshot() ([]byte, error) {
	now := t.now()

	t.mu.RLock()
	out := make([]snapshotEntry[K, V], 0, len(t.items))
	for el := t.order.Front(); el != nil; el = el.Next() {
		it := el.Value.(*item[K, V])
		if t.expired(it.entry, now) {
			continue
		}
		out = append(out, snapshotEntry[K, V]{
			Key:        it.key,
			Value:      it.entry.Value,
			InsertedAt: it.entry.InsertedAt,
			Source:     it.entry.Source,
		})
	}
	t.mu.RUnlock()

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("cache: snapshot %s: %w", t.name, err)
	}
	return data, nil
}

// Restore merges a Snapshot into the table, keeping original insertion
// times. Expired entries are skipped and an existing newer entry wins over a
// restored one. It returns the number of restored entries.
func (t *Table[K, V]) Restore(data []byte) (int, error) {
	var in []snapshotEntry[K, V]
	if err := json.Unmarshal(data, &in); err != nil {
		return 0, fmt.Errorf("cache: restore %s: %w", t.name, err)
	}
	slices.SortStableFunc(in, func(a, b snapshotEntry[K, V]) int {
		return a.InsertedAt.Compare(b.InsertedAt)
	})

	now := t.now()

	t.mu.Lock()
	restored := 0
	for _, se := range in {
		entry := Entry[V]{Value: se.Value, InsertedAt: se.InsertedAt, Source: se.Source}
		if t.expired(entry, now) {
			continue
		}
		if el, ok := t.items[se.Key]; ok && !el.Value.(*item[K, V]).entry.InsertedAt.Before(se.InsertedAt) {
			continue
		}
		t.insertOrderedLocked(se.Key, entry)
		restored++
	}
	evicted := t.evictLocked()
	n := len(t.items)
	t.mu.Unlock()

	t.metrics.CacheEvicted(t.name, "capacity", evicted)
	t.metrics.CacheSize(t.name, n)
	return restored, nil
}

func (t *Table[K, V]) expired(e Entry[V], now time.Time) bool {
	return t.cfg.TTL > 0 && now.Sub(e.InsertedAt) > t.cfg.TTL
}

// insertLocked appends a fresh entry at the back of the order list.
func (t *Table[K, V]) insertLocked(key K, entry Entry[V]) {
	if el, ok := t.items[key]; ok {
		t.removeLocked(el)
	}
	t.items[key] = t.order.PushBack(&item[K, V]{key: key, entry: entry})
}

// insertOrderedLocked places an entry by InsertedAt, scanning from the back,
// so restored entries interleave correctly with live ones.
func (t *Table[K, V]) insertOrderedLocked(key K, entry Entry[V]) {
	if el, ok := t.items[key]; ok {
		t.removeLocked(el)
	}
	it := &item[K, V]{key: key, entry: entry}
	for el := t.order.Back(); el != nil; el = el.Prev() {
		if !el.Value.(*item[K, V]).entry.InsertedAt.After(entry.InsertedAt) {
			t.items[key] = t.order.InsertAfter(it, el)
			return
		}
	}
	t.items[key] = t.order.PushFront(it)
}

func (t *Table[K, V]) removeLocked(el *list.Element) {
	it := t.order.Remove(el).(*item[K, V])
	delete(t.items, it.key)
}

func (t *Table[K, V]) evictLocked() int {
	if t.cfg.MaxEntries <= 0 {
		return 0
	}
	evicted := 0
	for len(t.items) > t.cfg.MaxEntries {
		t.removeLocked(t.order.Front())
		evicted++
	}
	return evicted
}
