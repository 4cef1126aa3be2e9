// Package cache provides the engine's in-memory Cache Store: generic tables
// with a per-table TTL and an oldest-first capacity bound, plus a registry
// that sweeps and snapshots every table for persistence.
package cache

import (
	"fmt"
	"time"

	"github.com/Keksclan/rawrfetch/source"
)

// EntityKind names the type of record a key refers to.
type EntityKind string

const (
	KindCreator EntityKind = "creator"
	KindPost    EntityKind = "post"
	KindPosts   EntityKind = "posts"
	KindRecent  EntityKind = "recent"
	KindSearch  EntityKind = "search"
)

// FetchKey identifies one page of one listing (or one entity) on one source.
// It is a comparable value and is never mutated.
type FetchKey struct {
	Source   source.ContentSource `json:"source"`
	Kind     EntityKind           `json:"kind"`
	EntityID string               `json:"entity_id"`
	Offset   int                  `json:"offset"`
	// Limit is the page size of a listing page. Zero for single entities.
	Limit int `json:"limit,omitempty"`
}

func (k FetchKey) String() string {
	if k.Limit > 0 {
		return fmt.Sprintf("%s:%s:%s@%d+%d", k.Source, k.Kind, k.EntityID, k.Offset, k.Limit)
	}
	return fmt.Sprintf("%s:%s:%s@%d", k.Source, k.Kind, k.EntityID, k.Offset)
}

// Entry is the stored form of a cached value.
type Entry[V any] struct {
	Value      V
	InsertedAt time.Time
	Source     source.ContentSource
}

// TableConfig sizes one table.
type TableConfig struct {
	// TTL is how long an entry stays readable. Zero means entries never expire.
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// MaxEntries bounds the table size. Zero means unbounded.
	MaxEntries int `yaml:"max_entries" env:"MAX_ENTRIES"`
}
