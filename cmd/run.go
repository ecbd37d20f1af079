package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/topicstreams-scraper/internal/api"
	"github.com/JakeFAU/topicstreams-scraper/internal/browser"
	"github.com/JakeFAU/topicstreams-scraper/internal/clock/system"
	"github.com/JakeFAU/topicstreams-scraper/internal/config"
	"github.com/JakeFAU/topicstreams-scraper/internal/cycle"
	"github.com/JakeFAU/topicstreams-scraper/internal/dedup"
	"github.com/JakeFAU/topicstreams-scraper/internal/extract"
	"github.com/JakeFAU/topicstreams-scraper/internal/id/uuid"
	"github.com/JakeFAU/topicstreams-scraper/internal/metrics"
	"github.com/JakeFAU/topicstreams-scraper/internal/news"
	"github.com/JakeFAU/topicstreams-scraper/internal/notify"
	"github.com/JakeFAU/topicstreams-scraper/internal/ratelimit"
	"github.com/JakeFAU/topicstreams-scraper/internal/scheduler"
	"github.com/JakeFAU/topicstreams-scraper/internal/snapshot"
	"github.com/JakeFAU/topicstreams-scraper/internal/storage/memory"
	"github.com/JakeFAU/topicstreams-scraper/internal/storage/postgres"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs the scrape loop until interrupted",
		Long: `Opens one browser session, then scrapes every topic once per cycle
until SIGINT or SIGTERM. A browser that cannot be started is fatal.`,
		RunE: runScraper,
	}
}

func runScraper(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := rt.cfg, rt.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cleanups []func()
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	gateway, closeGateway, err := openGateway(ctx, cfg.DB, logger)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, closeGateway)

	snapshots, closeSnapshots, err := openSnapshots(ctx, cfg.Snapshots)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, closeSnapshots)

	notifier, closeNotifier, err := openNotifier(ctx, cfg.Notify)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, closeNotifier)

	clock := system.New()
	metrics.Init()
	pacer := ratelimit.New(ratelimit.Config{
		RPS:    cfg.Search.MaxRPS,
		Burst:  cfg.Search.Burst,
		OnWait: metrics.ObserveNavigationWait,
	})
	extractor, err := extract.NewGoogle(extract.Config{
		BaseURL: cfg.Search.BaseURL,
		Pacer:   pacer,
	}, snapshots, clock, logger)
	if err != nil {
		return fmt.Errorf("init extractor: %w", err)
	}

	session, err := browser.Open(ctx, cfg.BrowserSettings(), logger)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}

	sched := scheduler.New(gateway, session, extractor, scheduler.Config{MaxPages: cfg.Scraper.MaxPages}, logger)
	controller, err := cycle.New(cycle.Deps{
		Collector: sched,
		Gateway:   gateway,
		Cache:     dedup.New(cfg.Scraper.HistoryCapacity),
		Session:   session,
		Notifier:  notifier,
		Clock:     clock,
		IDs:       uuid.New(),
		Recorder:  metrics.NewRecorder(),
	}, cycle.Config{Interval: cfg.Scraper.Interval()}, logger)
	if err != nil {
		_ = session.Close()
		return fmt.Errorf("init controller: %w", err)
	}

	if cfg.Ops.Port > 0 {
		ops := api.NewServer(controller, logger.Named("api"))
		go func() {
			if err := ops.ListenAndServe(ctx, cfg.Ops.Port); err != nil {
				logger.Error("ops server error", zap.Error(err))
			}
		}()
	}

	if err := controller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run scraper: %w", err)
	}
	return nil
}

func openGateway(ctx context.Context, cfg config.DBConfig, logger *zap.Logger) (news.Gateway, func(), error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("using in-memory storage; entries are lost on exit")
		return memory.NewGateway(cfg.SeedTopics...), func() {}, nil
	}

	gw, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.ConnString(),
		MaxConns: int32(cfg.MaxConns), //nolint:gosec // bounded by config validation
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.AutoMigrate {
		if err := gw.EnsureSchema(ctx); err != nil {
			gw.Close()
			return nil, nil, fmt.Errorf("migrate schema: %w", err)
		}
	}
	if len(cfg.SeedTopics) > 0 {
		if err := gw.SeedTopics(ctx, cfg.SeedTopics); err != nil {
			gw.Close()
			return nil, nil, fmt.Errorf("seed topics: %w", err)
		}
	}
	return gw, gw.Close, nil
}

func openSnapshots(ctx context.Context, cfg config.SnapshotsConfig) (news.SnapshotStore, func(), error) {
	switch cfg.Backend {
	case config.SnapshotsLocal:
		store, err := snapshot.NewLocal(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("init local snapshots: %w", err)
		}
		return store, func() {}, nil
	case config.SnapshotsGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create storage client: %w", err)
		}
		store, err := snapshot.NewGCS(client, cfg.GCSBucket, cfg.Prefix)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("init gcs snapshots: %w", err)
		}
		return store, func() { _ = client.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

func openNotifier(ctx context.Context, cfg config.NotifyConfig) (news.Notifier, func(), error) {
	if cfg.PubSubTopic == "" {
		return nil, func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSubProject)
	if err != nil {
		return nil, nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(cfg.PubSubTopic)
	return notify.NewPubSub(topic), func() {
		topic.Stop()
		_ = client.Close()
	}, nil
}
