package transport

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Memo is a short-lived in-process response cache backed by ristretto. It
// absorbs bursts of identical reads (several cursors asking for the same
// profile) and deduplicates concurrent loads of the same key. It is not the
// engine's Cache Store: entries are raw bodies and admission is best effort.
type Memo struct {
	rc  *ristretto.Cache[string, []byte]
	ttl time.Duration

	mu    sync.Mutex
	loads map[string]*call
}

// call deduplicates concurrent loads for the same key.
type call struct {
	wg  sync.WaitGroup
	val []byte
	err error
}

// NewMemo creates a memo holding about maxEntries bodies for ttl each. Every
// body costs 1 and ristretto's internal per-item cost is ignored, so MaxCost
// counts entries rather than bytes.
func NewMemo(maxEntries int64, ttl time.Duration) (*Memo, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	rc, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Memo{
		rc:    rc,
		ttl:   ttl,
		loads: make(map[string]*call),
	}, nil
}

// Get returns a copy of the body stored under key.
func (m *Memo) Get(key string) ([]byte, bool) {
	v, ok := m.rc.Get(key)
	if !ok {
		return nil, false
	}
	return bytes.Clone(v), true
}

// Set stores body under key for the memo TTL.
func (m *Memo) Set(key string, body []byte) {
	m.rc.SetWithTTL(key, bytes.Clone(body), 1, m.ttl)
	m.rc.Wait()
}

// Do returns the memoized body for key. On a miss it calls load once,
// sharing the result with concurrent callers, and memoizes successes.
func (m *Memo) Do(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}

	m.mu.Lock()
	if c, ok := m.loads[key]; ok {
		m.mu.Unlock()
		c.wg.Wait()
		if c.err != nil {
			return nil, c.err
		}
		return bytes.Clone(c.val), nil
	}

	c := &call{}
	c.wg.Add(1)
	m.loads[key] = c
	m.mu.Unlock()

	c.val, c.err = load(ctx)
	if c.err == nil && m.ttl > 0 {
		m.Set(key, c.val)
	}
	c.wg.Done()

	m.mu.Lock()
	delete(m.loads, key)
	m.mu.Unlock()

	if c.err != nil {
		return nil, c.err
	}
	return bytes.Clone(c.val), nil
}

// Clear drops every memoized body.
func (m *Memo) Clear() {
	m.rc.Clear()
}

// Close releases ristretto's goroutines.
func (m *Memo) Close() {
	m.rc.Close()
}
