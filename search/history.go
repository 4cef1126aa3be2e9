package search

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Keksclan/rawrfetch/persist"
)

// HistoryKey is the blob key search history is stored under.
const HistoryKey = "rawrfetch:search:history"

// Query is one remembered search.
type Query struct {
	Query   string    `json:"query"`
	Service string    `json:"service,omitempty"`
	At      time.Time `json:"at"`
}

// History keeps the most recent distinct queries, newest first, and writes
// them through to a BlobStore.
type History struct {
	store persist.BlobStore
	size  int
	now   func() time.Time

	mu      sync.Mutex
	queries []Query
}

// NewHistory creates a history of at most size entries. A nil store keeps
// history in memory only.
func NewHistory(store persist.BlobStore, size int) *History {
	if size <= 0 {
		size = 20
	}
	return &History{store: store, size: size, now: time.Now}
}

// Load replaces the in-memory history with the stored one.
func (h *History) Load(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	blob, ok, err := h.store.LoadBlob(ctx, HistoryKey)
	if err != nil || !ok {
		return err
	}
	var qs []Query
	if err := json.Unmarshal([]byte(blob), &qs); err != nil {
		return fmt.Errorf("search: decode history: %w", err)
	}
	if len(qs) > h.size {
		qs = qs[:h.size]
	}

	h.mu.Lock()
	h.queries = qs
	h.mu.Unlock()
	return nil
}

// Add records a query, moving a repeated query to the front.
func (h *History) Add(ctx context.Context, query, service string) error {
	q := Query{Query: strings.TrimSpace(query), Service: service, At: h.now()}

	h.mu.Lock()
	h.queries = slices.DeleteFunc(h.queries, func(e Query) bool {
		return strings.EqualFold(e.Query, q.Query) && e.Service == q.Service
	})
	h.queries = slices.Insert(h.queries, 0, q)
	if len(h.queries) > h.size {
		h.queries = h.queries[:h.size]
	}
	snapshot := slices.Clone(h.queries)
	h.mu.Unlock()

	if h.store == nil {
		return nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("search: encode history: %w", err)
	}
	return h.store.SaveBlob(ctx, HistoryKey, string(data))
}

// List returns the remembered queries, newest first.
func (h *History) List() []Query {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.queries)
}
