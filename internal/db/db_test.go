package db

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func newTestDB(t *testing.T) Config {
	t.Helper()
	return Config{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "larder.db"),
		Logger: zaptest.NewLogger(t),
	}
}

func TestModels_Schema(t *testing.T) {
	for _, model := range []any{&Food{}, &Unit{}, &Tag{}} {
		s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
		require.NoError(t, err)

		require.NotNil(t, s.PrioritizedPrimaryField, s.Table)
		assert.Equal(t, "id", s.PrioritizedPrimaryField.DBName, s.Table)
		for _, col := range []string{"created_at", "updated_at"} {
			assert.NotNil(t, s.LookUpField(col), "%s.%s", s.Table, col)
		}
	}
}

func TestNew_SQLite(t *testing.T) {
	cfg := newTestDB(t)
	database, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(database) })

	require.NoError(t, Ping(context.Background(), database))

	for _, table := range []string{"foods", "units", "tags"} {
		assert.True(t, database.Migrator().HasTable(table), table)
	}

	// Running the migrations again is a no-op.
	require.NoError(t, Migrate(database, cfg.Logger))
}

func TestNew_UniqueNames(t *testing.T) {
	database, err := New(newTestDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(database) })

	require.NoError(t, database.Create(&Food{Name: "Soup"}).Error)
	assert.Error(t, database.Create(&Food{Name: "Soup"}).Error)

	require.NoError(t, database.Create(&Tag{Name: "Dinner", Slug: "dinner"}).Error)
	assert.Error(t, database.Create(&Tag{Name: "Supper", Slug: "dinner"}).Error)
}

func TestNew_ZeroValuesAreStored(t *testing.T) {
	database, err := New(newTestDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(database) })

	unit := Unit{Name: "Pinch", Fraction: false}
	require.NoError(t, database.Create(&unit).Error)
	assert.NotEqual(t, [16]byte{}, [16]byte(unit.ID))

	var stored Unit
	require.NoError(t, database.First(&stored, "id = ?", unit.ID).Error)
	assert.False(t, stored.Fraction)
	assert.Equal(t, "Pinch", stored.Name)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{Driver: DriverSQLite, DSN: ":memory:"})
	assert.ErrorContains(t, err, "logger is required")

	_, err = New(Config{Driver: "mysql", Logger: zap.NewNop()})
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestQueryLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newQueryLogger(zap.New(core), gormlogger.Info, 10*time.Millisecond)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	sqlFn := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), sqlFn, nil)
	l.Trace(ctx, time.Now().Add(-time.Second), sqlFn, nil)
	l.Trace(ctx, time.Now(), sqlFn, assert.AnError)

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "query", entries[0].Message)
	assert.Equal(t, "slow query", entries[1].Message)
	assert.Equal(t, "query failed", entries[2].Message)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
}

func TestQueryLogger_Silent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newQueryLogger(zap.New(core), gormlogger.Silent, 0)

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, assert.AnError)
	assert.Zero(t, logs.Len())
}
