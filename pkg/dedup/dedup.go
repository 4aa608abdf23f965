// Package dedup drops duplicate message deliveries. QoS 1 subscriptions can
// redeliver an identical payload after a reconnect; remembering recently seen
// payloads keeps caches and command handlers from reprocessing them.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Deduper remembers ids for a TTL, bounded by a maximum entry count. The TTL
// should comfortably cover the broker's redelivery window; entries past it
// are evicted lazily whenever the table overflows.
type Deduper struct {
	mu     sync.Mutex
	ttl    time.Duration
	max    int
	expiry map[string]time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, expiry: make(map[string]time.Time, max)}
}

// ShouldProcess reports whether id has not been seen within the TTL, and
// records it. An empty id is always processed.
func (d *Deduper) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.expiry[id]; ok && now.Before(exp) {
		return false
	}
	d.expiry[id] = now.Add(d.ttl)
	if len(d.expiry) > d.max {
		d.evictLocked(now)
	}
	return true
}

// ShouldProcessPayload identifies a delivery by the hash of its raw payload:
// a QoS 1 redelivery carries byte-identical bytes, so the hash collapses the
// original and every redelivery onto one id.
func (d *Deduper) ShouldProcessPayload(payload []byte) bool {
	h := sha256.Sum256(payload)
	return d.ShouldProcess(hex.EncodeToString(h[:]))
}

// evictLocked drops expired entries, then arbitrary ones if the table is
// still over capacity. Callers hold d.mu.
func (d *Deduper) evictLocked(now time.Time) {
	for id, exp := range d.expiry {
		if now.After(exp) {
			delete(d.expiry, id)
		}
	}
	for id := range d.expiry {
		if len(d.expiry) <= d.max {
			break
		}
		delete(d.expiry, id)
	}
}
