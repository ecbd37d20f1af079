// Package scheduler walks every configured topic once per cycle, giving each
// topic its own browser page, and gathers the extracted entries and logs.
package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/JakeFAU/topicstreams-scraper/internal/news"
)

// Batch is the result of one full pass over the topics.
type Batch struct {
	Entries []news.Entry
	Logs    []news.ScraperLog
	Topics  int
}

// Shuffler reorders topics in place.
type Shuffler func([]news.Topic)

// RandomShuffle is a uniform Fisher-Yates shuffle.
func RandomShuffle(topics []news.Topic) {
	rand.Shuffle(len(topics), func(i, j int) {
		topics[i], topics[j] = topics[j], topics[i]
	})
}

// Config controls one iteration.
type Config struct {
	MaxPages int
	Shuffle  Shuffler
}

// Scheduler drives the extractor over all topics.
type Scheduler struct {
	gateway   news.Gateway
	browser   news.Browser
	extractor news.Extractor
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Scheduler.
func New(
	gateway news.Gateway,
	browser news.Browser,
	extractor news.Extractor,
	cfg Config,
	logger *zap.Logger,
) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	if cfg.Shuffle == nil {
		cfg.Shuffle = RandomShuffle
	}
	return &Scheduler{
		gateway:   gateway,
		browser:   browser,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger.Named("scheduler"),
	}
}

// Collect scrapes every topic in shuffled order. The first failure aborts the
// pass and nothing gathered so far is returned.
func (s *Scheduler) Collect(ctx context.Context) (Batch, error) {
	topics, err := s.gateway.Topics(ctx)
	if err != nil {
		return Batch{}, fmt.Errorf("fetch topics: %w", err)
	}
	order := append([]news.Topic(nil), topics...)
	s.cfg.Shuffle(order)

	var batch Batch
	for _, topic := range order {
		if err := ctx.Err(); err != nil {
			return Batch{}, fmt.Errorf("collect interrupted: %w", err)
		}
		entries, logs, err := s.scrapeTopic(ctx, topic)
		if err != nil {
			return Batch{}, err
		}
		s.logger.Debug("topic scraped",
			zap.String("topic", string(topic)),
			zap.Int("entries", len(entries)),
		)
		batch.Entries = append(batch.Entries, entries...)
		batch.Logs = append(batch.Logs, logs...)
		batch.Topics++
	}
	return batch, nil
}

func (s *Scheduler) scrapeTopic(ctx context.Context, topic news.Topic) ([]news.Entry, []news.ScraperLog, error) {
	page, err := s.browser.NewPage(ctx, topic)
	if err != nil {
		return nil, nil, fmt.Errorf("open page for %q: %w", topic, err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			s.logger.Warn("close page failed", zap.String("topic", string(topic)), zap.Error(closeErr))
		}
	}()

	entries, logs, err := s.extractor.Scrape(ctx, page, topic, s.cfg.MaxPages)
	if err != nil {
		return nil, nil, fmt.Errorf("scrape %q: %w", topic, err)
	}
	return entries, logs, nil
}
