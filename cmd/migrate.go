package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/topicstreams-scraper/internal/config"
	"github.com/JakeFAU/topicstreams-scraper/internal/storage/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates the database schema and seeds configured topics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			if rt.cfg.DB.Driver != config.DriverPostgres {
				return errors.New("migrate requires db.driver=postgres")
			}

			gw, err := postgres.New(cmd.Context(), postgres.Config{DSN: rt.cfg.DB.ConnString(), MaxConns: 1})
			if err != nil {
				return fmt.Errorf("open postgres: %w", err)
			}
			defer gw.Close()

			if err := gw.EnsureSchema(cmd.Context()); err != nil {
				return fmt.Errorf("migrate schema: %w", err)
			}
			if err := gw.SeedTopics(cmd.Context(), rt.cfg.DB.SeedTopics); err != nil {
				return fmt.Errorf("seed topics: %w", err)
			}
			rt.logger.Info("schema ready", zap.Int("seeded_topics", len(rt.cfg.DB.SeedTopics)))
			return nil
		},
	}
}
