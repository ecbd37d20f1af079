package snapshot

import (
	"context"
	"sync"

	"github.com/JakeFAU/topicstreams-scraper/internal/news"
)

// Memory keeps snapshots in process memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ news.SnapshotStore = (*Memory)(nil)

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Put stores a copy of html and returns a memory:// URI.
func (s *Memory) Put(_ context.Context, key string, html []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), html...)
	return "memory://" + key, nil
}

// Get returns the stored snapshot for key.
func (s *Memory) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[key]
	return b, ok
}
