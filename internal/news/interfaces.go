package news

import (
	"context"
	"time"
)

// Gateway is the storage surface consumed by the orchestrator.
type Gateway interface {
	Topics(ctx context.Context) ([]Topic, error)
	InsertNewsEntries(ctx context.Context, entries []Entry) error
	InsertScraperLogs(ctx context.Context, logs []ScraperLog) error
}

// Page is a single browser tab scoped to one topic scrape. Callers must
// Close it on every exit path.
type Page interface {
	Render(ctx context.Context, url string) (string, error)
	Close() error
}

// Browser opens fresh pages inside the shared browsing context.
type Browser interface {
	NewPage(ctx context.Context, topic Topic) (Page, error)
}

// Extractor turns rendered search pages into entries. Results are
// recency-sorted and limited to the recent time window.
type Extractor interface {
	Scrape(ctx context.Context, page Page, topic Topic, maxPages int) ([]Entry, []ScraperLog, error)
}

// SnapshotStore keeps rendered HTML for pages worth inspecting later.
type SnapshotStore interface {
	Put(ctx context.Context, key string, html []byte) (string, error)
}

// Notifier announces batches of freshly persisted entries.
type Notifier interface {
	Announce(ctx context.Context, cycleID string, entries []Entry) error
}

// Clock returns the current time and sleeps (useful for testing).
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator produces cycle identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
