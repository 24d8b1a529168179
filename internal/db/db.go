// Package db opens the Larder database and keeps its schema current. SQLite
// (modernc, pure Go) and PostgreSQL are supported; migrations are embedded in
// the binary and applied with golang-migrate.
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the settings needed to open the database. Driver defaults to
// SQLite when empty.
type Config struct {
	Driver string
	DSN    string

	Logger   *zap.Logger
	LogLevel gormlogger.LogLevel

	// SlowQueryThreshold marks statements logged as slow. Zero uses 200ms;
	// a negative value disables slow query logging.
	SlowQueryThreshold time.Duration

	// MaxOpenConns applies to PostgreSQL only; SQLite always uses a single
	// connection.
	MaxOpenConns int
}

// New opens the database and applies pending migrations.
func New(cfg Config) (*gorm.DB, error) {
	database, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(database, cfg.Logger); err != nil {
		_ = Close(database)
		return nil, err
	}
	return database, nil
}

// Open opens the database without touching its schema.
func Open(cfg Config) (*gorm.DB, error) {
	if cfg.Logger == nil {
		return nil, errors.New("db: logger is required")
	}

	gormCfg := &gorm.Config{
		Logger: newQueryLogger(cfg.Logger.Named("gorm"), cfg.LogLevel, cfg.SlowQueryThreshold),
		// Transactions are opened explicitly per request.
		SkipDefaultTransaction: true,
	}

	switch cfg.Driver {
	case DriverSQLite, "":
		// Hand GORM an existing *sql.DB so it uses the modernc driver instead
		// of opening its own connection through go-sqlite3.
		sqlDB, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)

		database, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", Conn: sqlDB}, gormCfg)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("db: init gorm with sqlite: %w", err)
		}
		if err := registerCallbacks(database); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return database, nil

	case DriverPostgres:
		database, err := gorm.Open(gormpostgres.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("db: open postgres: %w", err)
		}
		sqlDB, err := database.DB()
		if err != nil {
			return nil, fmt.Errorf("db: get sql.DB: %w", err)
		}
		maxOpen := cfg.MaxOpenConns
		if maxOpen <= 0 {
			maxOpen = 25
		}
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		if err := registerCallbacks(database); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return database, nil

	default:
		return nil, fmt.Errorf("db: unsupported driver %q, use %q or %q", cfg.Driver, DriverSQLite, DriverPostgres)
	}
}

// Migrate applies all pending up-migrations. ErrNoChange counts as success.
func Migrate(database *gorm.DB, log *zap.Logger) error {
	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("db: get sql.DB: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("db: migration source: %w", err)
	}

	var m *migrate.Migrate
	switch name := database.Dialector.Name(); name {
	case DriverSQLite:
		drv, err := migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
		if err != nil {
			return fmt.Errorf("db: sqlite migrate driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, name, drv)
		if err != nil {
			return fmt.Errorf("db: migrator: %w", err)
		}
	case DriverPostgres:
		drv, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
		if err != nil {
			return fmt.Errorf("db: postgres migrate driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, name, drv)
		if err != nil {
			return fmt.Errorf("db: migrator: %w", err)
		}
	default:
		return fmt.Errorf("db: no migrations for dialect %q", name)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("db: read migration version: %w", err)
	}
	if log != nil {
		log.Info("database migrations applied",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
	}
	return nil
}

// Ping verifies that the database connection is still alive.
func Ping(ctx context.Context, database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("db: get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func Close(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("db: get sql.DB: %w", err)
	}
	return sqlDB.Close()
}
