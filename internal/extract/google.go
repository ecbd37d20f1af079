// Package extract reads recency-sorted news listings from rendered search
// result pages.
package extract

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/topicstreams-scraper/internal/news"
)

const (
	// DefaultBaseURL is the search endpoint rendered for each topic.
	DefaultBaseURL = "https://www.google.com/search"
	// DefaultWindow matches the past-hour filter requested from the search surface.
	DefaultWindow = time.Hour
	// ResultsPerPage is the listing size of one results page.
	ResultsPerPage = 10
)

// Pacer delays navigations to keep the request rate unremarkable.
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config controls the Google news extractor.
type Config struct {
	BaseURL string
	Window  time.Duration
	// Pacer, if set, is consulted before every results page is rendered.
	Pacer Pacer
}

// Google implements news.Extractor against the news vertical of Google
// search, filtered to the past hour and sorted by date.
type Google struct {
	base      *url.URL
	window    time.Duration
	pacer     Pacer
	snapshots news.SnapshotStore
	clock     news.Clock
	logger    *zap.Logger
}

var _ news.Extractor = (*Google)(nil)

// NewGoogle builds the extractor. snapshots may be nil.
func NewGoogle(cfg Config, snapshots news.SnapshotStore, clock news.Clock, logger *zap.Logger) (*Google, error) {
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid search base url %q", raw)
	}
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}
	return &Google{
		base:      base,
		window:    window,
		pacer:     cfg.Pacer,
		snapshots: snapshots,
		clock:     clock,
		logger:    logger,
	}, nil
}

// SearchURL builds the results URL for a topic and zero-based page index.
func (g *Google) SearchURL(topic news.Topic, pageIndex int) string {
	u := *g.base
	q := u.Query()
	q.Set("q", string(topic))
	q.Set("tbm", "nws")
	q.Set("tbs", "qdr:h,sbd:1")
	q.Set("hl", "en")
	q.Set("gl", "us")
	if pageIndex > 0 {
		q.Set("start", strconv.Itoa(pageIndex*ResultsPerPage))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Scrape renders up to maxPages result pages for topic. Paging stops early on
// an empty or blocked page. Render failures are returned as errors; page-level
// anomalies are reported through the scraper logs.
func (g *Google) Scrape(
	ctx context.Context,
	page news.Page,
	topic news.Topic,
	maxPages int,
) ([]news.Entry, []news.ScraperLog, error) {
	if maxPages < 1 {
		maxPages = 1
	}
	var (
		entries []news.Entry
		logs    []news.ScraperLog
	)
	for i := 0; i < maxPages; i++ {
		target := g.SearchURL(topic, i)
		if g.pacer != nil {
			if err := g.pacer.Wait(ctx, target); err != nil {
				return nil, nil, fmt.Errorf("scrape %q page %d: %w", topic, i+1, err)
			}
		}
		html, err := page.Render(ctx, target)
		if err != nil {
			return nil, nil, fmt.Errorf("scrape %q page %d: %w", topic, i+1, err)
		}
		now := g.clock.Now()
		result, err := parseResults(html, topic, g.base, now, g.window)
		if err != nil {
			return nil, nil, fmt.Errorf("scrape %q page %d: %w", topic, i+1, err)
		}

		entry := news.ScraperLog{
			Topic:     string(topic),
			Page:      i + 1,
			Entries:   len(result.Entries),
			CreatedAt: now,
		}
		switch {
		case result.Blocked:
			entry.Status = news.LogStatusBlocked
			entry.Message = "search surface served a challenge page"
		case len(result.Entries) == 0:
			entry.Status = news.LogStatusEmpty
			entry.Message = fmt.Sprintf("no results in window (%d cards dropped)", result.Dropped)
		default:
			entry.Status = news.LogStatusOK
			if result.Dropped > 0 {
				entry.Message = fmt.Sprintf("%d cards dropped", result.Dropped)
			}
		}
		if entry.Status != news.LogStatusOK {
			entry.SnapshotURI = g.snapshot(ctx, topic, i+1, entry.Status, now, html)
		}
		logs = append(logs, entry)
		entries = append(entries, result.Entries...)

		if entry.Status != news.LogStatusOK || len(result.Entries) < ResultsPerPage {
			break
		}
	}
	g.logger.Debug("topic scraped",
		zap.String("topic", string(topic)),
		zap.Int("entries", len(entries)),
		zap.Int("pages", len(logs)),
	)
	return entries, logs, nil
}

func (g *Google) snapshot(
	ctx context.Context,
	topic news.Topic,
	pageNum int,
	status news.LogStatus,
	now time.Time,
	html string,
) string {
	if g.snapshots == nil {
		return ""
	}
	key := SnapshotKey(topic, pageNum, status, now)
	uri, err := g.snapshots.Put(ctx, key, []byte(html))
	if err != nil {
		g.logger.Warn("snapshot failed", zap.String("topic", string(topic)), zap.String("key", key), zap.Error(err))
		return ""
	}
	return uri
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// SnapshotKey names the stored HTML of one results page.
func SnapshotKey(topic news.Topic, pageNum int, status news.LogStatus, at time.Time) string {
	slug := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(string(topic)), "-"), "-")
	if slug == "" {
		slug = "topic"
	}
	return fmt.Sprintf("%s/%s-p%d-%s.html", slug, at.UTC().Format("20060102T150405Z"), pageNum, status)
}
