package news

import "time"

// Topic is a tracked subject used as the search query key. Names arrive from
// storage already normalized.
type Topic string

// Entry is one discovered article.
type Entry struct {
	Topic string `json:"topic"`
	Title string `json:"title"`
	// Source is the publisher label shown by the search surface; nil when the
	// result card carried none.
	Source      *string    `json:"source,omitempty"`
	URL         string     `json:"url"`
	Snippet     string     `json:"snippet,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ScrapedAt   time.Time  `json:"scraped_at"`
}

// Signature returns the dedup identity of the entry.
func (e Entry) Signature() Signature {
	sig := Signature{Topic: e.Topic, Title: e.Title}
	if e.Source != nil {
		sig.Source = *e.Source
		sig.HasSource = true
	}
	return sig
}

// Signature is the (topic, title, source) triple used for deduplication. An
// absent source and an empty source are distinct signatures.
type Signature struct {
	Topic     string
	Title     string
	Source    string
	HasSource bool
}

// LogStatus classifies how a single results page was observed.
type LogStatus string

// Scraper log statuses recorded per results page.
const (
	LogStatusOK      LogStatus = "ok"
	LogStatusEmpty   LogStatus = "empty"
	LogStatusBlocked LogStatus = "blocked"
)

// ScraperLog is a diagnostic record produced alongside entries during
// extraction. The orchestrator forwards it to storage unchanged apart from
// stamping CycleID.
type ScraperLog struct {
	Topic       string    `json:"topic"`
	Page        int       `json:"page"`
	Status      LogStatus `json:"status"`
	Entries     int       `json:"entries"`
	Message     string    `json:"message,omitempty"`
	SnapshotURI string    `json:"snapshot_uri,omitempty"`
	CycleID     string    `json:"cycle_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// StringPtr returns a pointer to s; handy for building entries with a source.
func StringPtr(s string) *string {
	return &s
}
