// Package postgres provides the Postgres-backed persistence gateway.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/topicstreams-scraper/internal/news"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Gateway reads topics and writes entries and scraper logs.
type Gateway struct {
	pool pool
}

var _ news.Gateway = (*Gateway)(nil)

// New connects to Postgres using the provided config.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Gateway{pool: p}, nil
}

// NewWithPool constructs a gateway from an existing pool (primarily for testing).
func NewWithPool(p pool) (*Gateway, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	return &Gateway{pool: p}, nil
}

// Close releases the underlying pool resources.
func (g *Gateway) Close() {
	if g == nil || g.pool == nil {
		return
	}
	g.pool.Close()
}

const selectTopics = `SELECT name FROM topics ORDER BY name`

// Topics returns every tracked topic.
func (g *Gateway) Topics(ctx context.Context) ([]news.Topic, error) {
	rows, err := g.pool.Query(ctx, selectTopics)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan topics: %w", err)
	}
	topics := make([]news.Topic, 0, len(names))
	for _, name := range names {
		topics = append(topics, news.Topic(name))
	}
	return topics, nil
}

const insertNewsEntries = `
INSERT INTO news_entries (topic, title, source, url, domain, snippet, published_at, scraped_at)
SELECT * FROM unnest(
	$1::text[], $2::text[], $3::text[], $4::text[],
	$5::text[], $6::text[], $7::timestamptz[], $8::timestamptz[]
)
ON CONFLICT (topic, title, domain) DO NOTHING`

// InsertNewsEntries writes entries in one statement. Rows colliding with the
// (topic, title, domain) constraint are skipped by the database.
func (g *Gateway) InsertNewsEntries(ctx context.Context, entries []news.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	n := len(entries)
	var (
		topics    = make([]string, n)
		titles    = make([]string, n)
		sources   = make([]pgtype.Text, n)
		urls      = make([]string, n)
		domains   = make([]string, n)
		snippets  = make([]string, n)
		published = make([]pgtype.Timestamptz, n)
		scraped   = make([]time.Time, n)
	)
	for i, e := range entries {
		topics[i] = e.Topic
		titles[i] = e.Title
		if e.Source != nil {
			sources[i] = pgtype.Text{String: *e.Source, Valid: true}
		}
		urls[i] = e.URL
		domains[i] = news.Domain(e.URL)
		snippets[i] = e.Snippet
		if e.PublishedAt != nil {
			published[i] = pgtype.Timestamptz{Time: *e.PublishedAt, Valid: true}
		}
		scraped[i] = e.ScrapedAt
	}
	if _, err := g.pool.Exec(ctx, insertNewsEntries,
		topics, titles, sources, urls, domains, snippets, published, scraped,
	); err != nil {
		return fmt.Errorf("insert news entries: %w", err)
	}
	return nil
}

const insertScraperLogs = `
INSERT INTO scraper_logs (topic, page, status, entries, message, snapshot_uri, cycle_id, created_at)
SELECT * FROM unnest(
	$1::text[], $2::int[], $3::text[], $4::int[],
	$5::text[], $6::text[], $7::text[], $8::timestamptz[]
)`

// InsertScraperLogs writes scraper logs in one statement.
func (g *Gateway) InsertScraperLogs(ctx context.Context, logs []news.ScraperLog) error {
	if len(logs) == 0 {
		return nil
	}
	n := len(logs)
	var (
		topics    = make([]string, n)
		pages     = make([]int32, n)
		statuses  = make([]string, n)
		counts    = make([]int32, n)
		messages  = make([]string, n)
		snapshots = make([]string, n)
		cycles    = make([]string, n)
		created   = make([]time.Time, n)
	)
	for i, l := range logs {
		topics[i] = l.Topic
		pages[i] = int32(l.Page)
		statuses[i] = string(l.Status)
		counts[i] = int32(l.Entries)
		messages[i] = l.Message
		snapshots[i] = l.SnapshotURI
		cycles[i] = l.CycleID
		created[i] = l.CreatedAt
	}
	if _, err := g.pool.Exec(ctx, insertScraperLogs,
		topics, pages, statuses, counts, messages, snapshots, cycles, created,
	); err != nil {
		return fmt.Errorf("insert scraper logs: %w", err)
	}
	return nil
}
