package cache

import (
	"sync"
	"time"
)

// Persistable is the type-erased view of a Table used for sweeping and
// persistence.
type Persistable interface {
	Name() string
	Len() int
	Clear()
	Sweep(retention time.Duration) int
	Snapshot() ([]byte, error)
	Restore(data []byte) (int, error)
}

// Registry owns the set of tables of one engine. It replaces process-wide
// caches: whoever needs a table receives it from the registry owner.
type Registry struct {
	mu     sync.RWMutex
	tables []Persistable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds tables. Names must be unique; a table registered under an
// existing name replaces it.
func (r *Registry) Register(tables ...Persistable) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range tables {
		replaced := false
		for i, existing := range r.tables {
			if existing.Name() == t.Name() {
				r.tables[i] = t
				replaced = true
				break
			}
		}
		if !replaced {
			r.tables = append(r.tables, t)
		}
	}
}

// Tables returns the registered tables in registration order.
func (r *Registry) Tables() []Persistable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Persistable, len(r.tables))
	copy(out, r.tables)
	return out
}

// Lookup returns the table registered under name.
func (r *Registry) Lookup(name string) (Persistable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tables {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Sweep sweeps every table and returns the number of removed entries per
// table name.
func (r *Registry) Sweep(retention time.Duration) map[string]int {
	out := make(map[string]int)
	for _, t := range r.Tables() {
		out[t.Name()] = t.Sweep(retention)
	}
	return out
}

// Clear empties every table.
func (r *Registry) Clear() {
	for _, t := range r.Tables() {
		t.Clear()
	}
}
