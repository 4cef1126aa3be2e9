// Package persist durably stores cache snapshots and small engine state as
// string blobs, and flushes the in-memory tables on a schedule.
package persist

import (
	"context"
	"maps"
	"sync"
)

// BlobStore loads and saves string blobs by key.
type BlobStore interface {
	// LoadBlob returns the blob stored under key. A missing key is reported
	// as ok == false with a nil error.
	LoadBlob(ctx context.Context, key string) (string, bool, error)
	SaveBlob(ctx context.Context, key, value string) error
}

// Memory is an in-process BlobStore. It survives nothing and is meant for
// tests and for running without a backing store.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]string
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string]string)}
}

func (m *Memory) LoadBlob(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.blobs[key]
	return v, ok, nil
}

func (m *Memory) SaveBlob(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.blobs[key] = value
	m.mu.Unlock()
	return nil
}

// Blobs returns a copy of the stored blobs.
func (m *Memory) Blobs() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.blobs)
}
