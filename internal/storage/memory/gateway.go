// Package memory provides an in-memory persistence gateway for development
// and tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/JakeFAU/topicstreams-scraper/internal/news"
)

// ErrUnavailable is returned by every call after Fail is armed.
var ErrUnavailable = errors.New("memory gateway unavailable")

type uniqueKey struct {
	topic  string
	title  string
	domain string
}

// Gateway keeps topics, entries and scraper logs in process memory. It applies
// the same (topic, title, domain) uniqueness rule as the relational schema.
type Gateway struct {
	mu      sync.RWMutex
	topics  map[news.Topic]struct{}
	entries []news.Entry
	logs    []news.ScraperLog
	keys    map[uniqueKey]struct{}
	fail    error
}

var _ news.Gateway = (*Gateway)(nil)

// NewGateway constructs a Gateway tracking the given topics.
func NewGateway(topics ...string) *Gateway {
	g := &Gateway{
		topics: make(map[news.Topic]struct{}),
		keys:   make(map[uniqueKey]struct{}),
	}
	for _, t := range topics {
		g.topics[news.Topic(t)] = struct{}{}
	}
	return g
}

// AddTopic starts tracking topic.
func (g *Gateway) AddTopic(topic string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.topics[news.Topic(topic)] = struct{}{}
}

// Fail makes every later call return err; nil restores normal behavior.
func (g *Gateway) Fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = err
}

// Topics returns the tracked topics sorted by name.
func (g *Gateway) Topics(_ context.Context) ([]news.Topic, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.fail != nil {
		return nil, g.fail
	}
	out := make([]news.Topic, 0, len(g.topics))
	for t := range g.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// InsertNewsEntries stores entries, silently skipping constraint collisions.
func (g *Gateway) InsertNewsEntries(_ context.Context, entries []news.Entry) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return g.fail
	}
	for _, e := range entries {
		key := uniqueKey{topic: e.Topic, title: e.Title, domain: news.Domain(e.URL)}
		if _, exists := g.keys[key]; exists {
			continue
		}
		g.keys[key] = struct{}{}
		g.entries = append(g.entries, e)
	}
	return nil
}

// InsertScraperLogs appends logs.
func (g *Gateway) InsertScraperLogs(_ context.Context, logs []news.ScraperLog) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return g.fail
	}
	g.logs = append(g.logs, logs...)
	return nil
}

// Entries returns a copy of the stored entries.
func (g *Gateway) Entries() []news.Entry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]news.Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

// Logs returns a copy of the stored scraper logs.
func (g *Gateway) Logs() []news.ScraperLog {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]news.ScraperLog, len(g.logs))
	copy(out, g.logs)
	return out
}
