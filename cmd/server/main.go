package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/larder-io/larder/internal/api"
	"github.com/larder-io/larder/internal/config"
	"github.com/larder-io/larder/internal/db"
	"github.com/larder-io/larder/internal/metrics"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd(&cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "larder-server",
		Short: "Larder server, the pantry API",
		Long: `Larder server exposes the foods, units and tags of a household
pantry over a REST API backed by SQLite or PostgreSQL.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	root.AddCommand(newServeCmd(cfg))
	root.AddCommand(newMigrateCmd(cfg))
	root.AddCommand(newVersionCmd())

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP API listen address")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Grace period for in-flight requests on shutdown")
	flags.StringVar(&cfg.DB.Driver, "db-driver", cfg.DB.Driver, "Database driver (sqlite or postgres)")
	flags.StringVar(&cfg.DB.DSN, "db-dsn", cfg.DB.DSN, "Database DSN or file path for SQLite")
	flags.StringVar(&cfg.DB.LogLevel, "db-log-level", cfg.DB.LogLevel, "SQL log level (silent, error, warn, info)")

	return root
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("larder-server %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			database, err := db.Open(dbConfig(cfg, logger))
			if err != nil {
				return err
			}
			defer db.Close(database) //nolint:errcheck

			return db.Migrate(database, logger)
		},
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting larder server",
		zap.String("version", version),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("db_driver", cfg.DB.Driver),
		zap.String("log_level", cfg.LogLevel),
	)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	database, err := db.New(dbConfig(cfg, logger))
	if err != nil {
		return err
	}
	defer db.Close(database) //nolint:errcheck

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.RouterConfig{
			DB:      database,
			Metrics: metrics.New(),
			Logger:  logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down larder server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func dbConfig(cfg *config.Config, logger *zap.Logger) db.Config {
	return db.Config{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Logger:             logger,
		LogLevel:           gormLogLevel(cfg.DB.LogLevel),
		SlowQueryThreshold: cfg.DB.SlowQuery,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
	}
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	var cfg zap.Config
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = lvl

	return cfg.Build()
}
