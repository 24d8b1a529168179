// Package config loads the server configuration. Values come from the
// environment (prefix LARDER_, with an optional .env file in the working
// directory) on top of built-in defaults; command-line flags may override
// them before Validate is called.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Loads .env into the process environment before any variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "LARDER_"

// Config is the root configuration object.
//
//	LARDER_HTTP_ADDR        -> http_addr
//	LARDER_DB_DSN           -> db.dsn
//	LARDER_DB_MAX_OPEN_CONNS -> db.max_open_conns
type Config struct {
	HTTPAddr        string        `koanf:"http_addr" validate:"required"`
	LogLevel        string        `koanf:"log_level" validate:"oneof=debug info warn error"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	DB              DBConfig      `koanf:"db"`
}

// DBConfig selects and tunes the database.
type DBConfig struct {
	Driver       string        `koanf:"driver" validate:"oneof=sqlite postgres"`
	DSN          string        `koanf:"dsn" validate:"required"`
	LogLevel     string        `koanf:"log_level" validate:"oneof=silent error warn info"`
	SlowQuery    time.Duration `koanf:"slow_query"`
	MaxOpenConns int           `koanf:"max_open_conns" validate:"gte=0"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
		DB: DBConfig{
			Driver:    "sqlite",
			DSN:       "./larder.db",
			LogLevel:  "warn",
			SlowQuery: 200 * time.Millisecond,
		},
	}
}

// Load returns Defaults overlaid with the LARDER_ environment variables. The
// result is not validated; call Validate once flags have been applied.
func Load() (Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: load env: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// Validate reports missing or malformed settings.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// envKey maps LARDER_DB_MAX_OPEN_CONNS to db.max_open_conns. Only the db_
// group is nested; every other variable maps to a top-level key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if rest, ok := strings.CutPrefix(key, "db_"); ok {
		return "db." + rest
	}
	return key
}
