package postgres

import (
	"context"
	"fmt"
)

// schema is idempotent. The trigger feeds LISTEN/NOTIFY consumers such as
// the WebSocket fan-out in the API process.
const schema = `
CREATE TABLE IF NOT EXISTS topics (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS news_entries (
	id           BIGSERIAL PRIMARY KEY,
	topic        TEXT NOT NULL,
	title        TEXT NOT NULL,
	source       TEXT,
	url          TEXT NOT NULL,
	domain       TEXT NOT NULL,
	snippet      TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ,
	scraped_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (topic, title, domain)
);
CREATE INDEX IF NOT EXISTS idx_news_entries_topic_scraped ON news_entries (topic, scraped_at DESC);

CREATE TABLE IF NOT EXISTS scraper_logs (
	id           BIGSERIAL PRIMARY KEY,
	topic        TEXT NOT NULL,
	page         INT NOT NULL,
	status       TEXT NOT NULL,
	entries      INT NOT NULL DEFAULT 0,
	message      TEXT NOT NULL DEFAULT '',
	snapshot_uri TEXT NOT NULL DEFAULT '',
	cycle_id     TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_scraper_logs_created ON scraper_logs (created_at DESC);

CREATE OR REPLACE FUNCTION notify_news_entry() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('news_entries', json_build_object(
		'id', NEW.id,
		'topic', NEW.topic,
		'title', NEW.title,
		'source', NEW.source,
		'url', NEW.url,
		'domain', NEW.domain,
		'published_at', NEW.published_at,
		'scraped_at', NEW.scraped_at
	)::text);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS news_entries_notify ON news_entries;
CREATE TRIGGER news_entries_notify
	AFTER INSERT ON news_entries
	FOR EACH ROW EXECUTE FUNCTION notify_news_entry();
`

// EnsureSchema creates the tables, indexes and notify trigger if missing.
func (g *Gateway) EnsureSchema(ctx context.Context) error {
	if _, err := g.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const insertTopic = `INSERT INTO topics (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`

// SeedTopics inserts the given topic names, ignoring ones already tracked.
func (g *Gateway) SeedTopics(ctx context.Context, names []string) error {
	for _, name := range names {
		if _, err := g.pool.Exec(ctx, insertTopic, name); err != nil {
			return fmt.Errorf("seed topic %q: %w", name, err)
		}
	}
	return nil
}
