// Package dedupe tracks vote idempotency keys so a resubmitted decision is
// acknowledged without re-applying its rating delta.
package dedupe

import (
	"context"
	"strings"
	"sync"
)

// Deduper records seen vote keys for at-most-once application.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if
	// not. Returns true if key was already seen, false if it was newly
	// recorded. This is the ONLY method for deduplication.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key, allowing a retry. Used when a vote was
	// marked seen but its commit failed.
	Unrecord(ctx context.Context, key string)

	// Size returns the current number of tracked keys.
	Size() int64
}

// Key builds the dedup key for one decision. The token is client-supplied;
// the app layer falls back to a session-scoped token so a retried submit is
// deduplicated while a genuine re-judgement in a later session is not.
func Key(ownerID, winnerID, loserID, token string) string {
	return strings.Join([]string{ownerID, winnerID, loserID, token}, "|")
}

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of keys kept in memory. Zero or negative
// means unbounded.
func WithMaxSize(n int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = n
	}
}

// inMemoryDeduper implements Deduper with a map plus a FIFO eviction ring.
// The durable dedup index in the SQLite store is the backstop; this cache
// only short-circuits the common retry case.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string // insertion order; stale entries skipped on eviction
	head    int
	maxSize int
}

// NewInMemoryDeduper creates an in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: 50000}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = struct{}{}
	if d.maxSize > 0 {
		d.ring = append(d.ring, key)
	}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// The ring entry is left in place; eviction skips keys no longer in
	// the map.
	delete(d.seen, key)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// evictOldest drops the oldest live key. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	for d.head < len(d.ring) {
		key := d.ring[d.head]
		d.head++
		if _, ok := d.seen[key]; ok {
			delete(d.seen, key)
			break
		}
	}
	// Compact once the consumed prefix dominates the ring.
	if d.head > len(d.ring)/2 {
		d.ring = append([]string(nil), d.ring[d.head:]...)
		d.head = 0
	}
}
