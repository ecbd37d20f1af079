// Package notify announces newly stored news entries to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/topicstreams-scraper/internal/news"
)

// Announcement is the JSON body published once per cycle with new entries.
type Announcement struct {
	CycleID string         `json:"cycle_id"`
	Count   int            `json:"count"`
	Entries []AnnouncedRow `json:"entries"`
}

// AnnouncedRow is the wire form of one new entry.
type AnnouncedRow struct {
	Topic       string     `json:"topic"`
	Title       string     `json:"title"`
	Source      *string    `json:"source,omitempty"`
	URL         string     `json:"url"`
	Domain      string     `json:"domain"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ScrapedAt   time.Time  `json:"scraped_at"`
}

// NewAnnouncement builds the payload for entries.
func NewAnnouncement(cycleID string, entries []news.Entry) Announcement {
	rows := make([]AnnouncedRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, AnnouncedRow{
			Topic:       string(e.Topic),
			Title:       e.Title,
			Source:      e.Source,
			URL:         e.URL,
			Domain:      news.Domain(e.URL),
			PublishedAt: e.PublishedAt,
			ScrapedAt:   e.ScrapedAt,
		})
	}
	return Announcement{CycleID: cycleID, Count: len(rows), Entries: rows}
}

type topic interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// PubSub publishes announcements to a Cloud Pub/Sub topic.
type PubSub struct {
	topic topic
}

var _ news.Notifier = (*PubSub)(nil)

// NewPubSub creates a PubSub notifier for the provided topic handle.
func NewPubSub(t *pubsub.Topic) *PubSub {
	if t == nil {
		return &PubSub{}
	}
	return &PubSub{topic: t}
}

// Announce publishes one message carrying all entries. Empty batches are skipped.
func (p *PubSub) Announce(ctx context.Context, cycleID string, entries []news.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if p.topic == nil {
		return fmt.Errorf("pubsub topic is not configured")
	}
	data, err := json.Marshal(NewAnnouncement(cycleID, entries))
	if err != nil {
		return fmt.Errorf("marshal announcement: %w", err)
	}
	msg := &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"cycle_id": cycleID},
	}
	if _, err := p.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish announcement: %w", err)
	}
	return nil
}
