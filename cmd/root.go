// Package cmd defines the CLI commands for the topicstreams-scraper executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/topicstreams-scraper/internal/config"
	"github.com/JakeFAU/topicstreams-scraper/internal/logging"
)

// runtimeKeyType is the key for storing the loaded runtime in the context.
type runtimeKeyType string

const runtimeKey runtimeKeyType = "runtime"

// runtime holds what every subcommand needs after startup.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

// loadRuntime is replaced in tests.
var loadRuntime = func(path string) (*runtime, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger}, nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "topicstreams-scraper",
		Short: "Scrapes recent news for tracked topics on a fixed interval.",
		Long: `topicstreams-scraper drives one headless browser over every tracked
topic each cycle, deduplicates the results against recent history and stores
new entries for the TopicStreams API.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(cfgFile)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(rt.logger)
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey, rt))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey).(*runtime); ok && rt != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKey).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "topicstreams-scraper: %v\n", err)
		os.Exit(1)
	}
}
