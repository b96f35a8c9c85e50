package bus

import (
	"sync"
	"time"
)

// RepeatDetector is a TTL-based cache used to notice when the model
// emits the same decision line twice in one run, which usually means
// the loop is stuck.
//
// Seen() returns true when the key was already recorded within the TTL.
// Expired entries are pruned lazily on each check.
type RepeatDetector struct {
	mu      sync.Mutex
	entries map[string]int64 // key -> unix millis
	ttl     time.Duration
	maxSize int
}

func NewRepeatDetector(ttl time.Duration, maxSize int) *RepeatDetector {
	return &RepeatDetector{
		entries: make(map[string]int64, 64),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Seen reports whether key was recorded within the TTL window, and
// records it for future checks when it was not.
func (d *RepeatDetector) Seen(key string) bool {
	now := time.Now().UnixMilli()
	cutoff := now - d.ttl.Milliseconds()

	d.mu.Lock()
	defer d.mu.Unlock()

	if ts, ok := d.entries[key]; ok && ts >= cutoff {
		return true
	}

	d.cleanup(cutoff)
	d.entries[key] = now
	return false
}

// cleanup removes expired entries, then evicts oldest-first when the
// cache is still over its size cap. Caller holds the lock.
func (d *RepeatDetector) cleanup(cutoff int64) {
	for k, ts := range d.entries {
		if ts < cutoff {
			delete(d.entries, k)
		}
	}
	for len(d.entries) >= d.maxSize && d.maxSize > 0 {
		var oldestKey string
		var oldestTS int64 = 1<<63 - 1
		for k, ts := range d.entries {
			if ts < oldestTS {
				oldestTS = ts
				oldestKey = k
			}
		}
		delete(d.entries, oldestKey)
	}
}
