package indexer

import (
	"sync"
	"time"
)

// Dedup is a fast in-memory guard against webhook replays arriving in quick
// succession. The database unique constraint on (tx_hash, log_index) remains
// the authority; this only spares it the obvious repeats. Safe for
// concurrent use.
type Dedup struct {
	seen map[string]time.Time // event key -> last seen time
	ttl  time.Duration
	mu   sync.Mutex
}

// NewDedup creates a Dedup instance that considers an event a duplicate if
// its key has been seen within the given ttl.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// Seen reports whether the key was marked within the TTL window. It never
// records the key; callers mark only after the event is fully applied, so a
// failed dispatch stays retryable.
func (d *Dedup) Seen(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	lastSeen, ok := d.seen[key]
	return ok && time.Since(lastSeen) < d.ttl
}

// Mark records the key so Seen reports true for it until the TTL expires.
func (d *Dedup) Mark(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seen[key] = time.Now()
}

// Cleanup removes entries that have expired beyond the TTL. Call it
// periodically to prevent unbounded memory growth.
func (d *Dedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for key, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, key)
		}
	}
}
