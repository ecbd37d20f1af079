// Package dedup filters scraped entries against a bounded, process-local
// history of previously forwarded signatures.
package dedup

import "github.com/JakeFAU/topicstreams-scraper/internal/news"

// DefaultCapacity bounds the history; roughly six hours of traffic for ten
// busy topics.
const DefaultCapacity = 25000

// Cache is the history of forwarded signatures. It is not an LRU: once the
// size exceeds the capacity the whole history is dropped before the next
// batch is recorded. Storage uniqueness remains the source of truth.
//
// A Cache has a single owner and is not safe for concurrent use.
type Cache struct {
	capacity int
	seen     map[news.Signature]struct{}
}

// New creates an empty Cache. A non-positive capacity selects DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		seen:     make(map[news.Signature]struct{}),
	}
}

// Capacity reports the configured bound.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Len reports the number of remembered signatures.
func (c *Cache) Len() int {
	return len(c.seen)
}

// Contains reports whether sig was previously recorded.
func (c *Cache) Contains(sig news.Signature) bool {
	_, ok := c.seen[sig]
	return ok
}

// FilterNew returns, in original order, the entries whose signature is neither
// in the history nor earlier in the same batch. The history is not modified.
func (c *Cache) FilterNew(entries []news.Entry) []news.Entry {
	out := make([]news.Entry, 0, len(entries))
	batch := make(map[news.Signature]struct{}, len(entries))
	for _, entry := range entries {
		sig := entry.Signature()
		if _, dup := batch[sig]; dup {
			continue
		}
		if c.Contains(sig) {
			continue
		}
		batch[sig] = struct{}{}
		out = append(out, entry)
	}
	return out
}

// RecordSeen adds the signatures of entries to the history. The size check
// happens before the batch is added: if the history already exceeds its
// capacity it is cleared first. The number of cleared signatures is returned
// (zero when no reset happened).
func (c *Cache) RecordSeen(entries []news.Entry) int {
	cleared := 0
	if len(c.seen) > c.capacity {
		cleared = len(c.seen)
		c.seen = make(map[news.Signature]struct{}, len(entries))
	}
	for _, entry := range entries {
		c.seen[entry.Signature()] = struct{}{}
	}
	return cleared
}
