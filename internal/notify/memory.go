package notify

import (
	"context"
	"sync"

	"github.com/JakeFAU/topicstreams-scraper/internal/news"
)

// Memory records announcements for inspection.
type Memory struct {
	mu   sync.RWMutex
	sent []Announcement
	err  error
}

var _ news.Notifier = (*Memory)(nil)

// NewMemory returns an empty Memory notifier.
func NewMemory() *Memory {
	return &Memory{}
}

// Fail makes subsequent Announce calls return err.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Announce records the announcement. Empty batches are skipped.
func (m *Memory) Announce(_ context.Context, cycleID string, entries []news.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if len(entries) == 0 {
		return nil
	}
	m.sent = append(m.sent, NewAnnouncement(cycleID, entries))
	return nil
}

// Sent returns the recorded announcements.
func (m *Memory) Sent() []Announcement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Announcement, len(m.sent))
	copy(out, m.sent)
	return out
}
