package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("LARDER_HTTP_ADDR", ":9000")
	t.Setenv("LARDER_SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("LARDER_DB_DRIVER", "postgres")
	t.Setenv("LARDER_DB_DSN", "postgres://larder@localhost/larder")
	t.Setenv("LARDER_DB_MAX_OPEN_CONNS", "50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "postgres://larder@localhost/larder", cfg.DB.DSN)
	assert.Equal(t, 50, cfg.DB.MaxOpenConns)
	assert.Equal(t, "warn", cfg.DB.LogLevel, "unset values keep their default")
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.DB.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "Driver")

	cfg = Defaults()
	cfg.LogLevel = "trace"
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.DB.DSN = ""
	assert.Error(t, cfg.Validate())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "http_addr", envKey("LARDER_HTTP_ADDR"))
	assert.Equal(t, "db.max_open_conns", envKey("LARDER_DB_MAX_OPEN_CONNS"))
}
