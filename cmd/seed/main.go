// Command larder-seed fills a Larder database with the default units, foods
// and tags. It reads the same LARDER_ environment variables as the server
// and can be run repeatedly; existing rows are left untouched.
//
//	go run ./cmd/seed --db-dsn ./larder.db
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/larder-io/larder/internal/config"
	"github.com/larder-io/larder/internal/db"
	"github.com/larder-io/larder/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newSeedCmd(&cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSeedCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "larder-seed",
		Short: "Seed the default units, foods and tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			database, err := db.New(db.Config{
				Driver:   cfg.DB.Driver,
				DSN:      cfg.DB.DSN,
				Logger:   logger,
				LogLevel: gormlogger.Silent,
			})
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close(database) //nolint:errcheck

			results, err := seed.Run(cmd.Context(), database, logger)
			if err != nil {
				return err
			}
			for _, res := range results {
				fmt.Printf("✓ %-6s created %d, skipped %d\n", res.Resource, res.Created, res.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.DB.Driver, "db-driver", cfg.DB.Driver, "Database driver (sqlite or postgres)")
	cmd.Flags().StringVar(&cfg.DB.DSN, "db-dsn", cfg.DB.DSN, "Database DSN or file path for SQLite")
	return cmd
}
