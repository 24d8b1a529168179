package seed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/larder-io/larder/internal/db"
)

func TestRun(t *testing.T) {
	logger := zaptest.NewLogger(t)
	database, err := db.New(db.Config{
		Driver: db.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "larder.db"),
		Logger: logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(database) })

	first, err := Run(context.Background(), database, logger)
	require.NoError(t, err)
	require.Len(t, first, 3)
	for _, res := range first {
		assert.Positive(t, res.Created, res.Resource)
		assert.Zero(t, res.Skipped, res.Resource)
	}

	var gram db.Unit
	require.NoError(t, database.Where("name = ?", "gram").Take(&gram).Error)
	assert.False(t, gram.Fraction)
	assert.True(t, gram.UseAbbreviation)

	var dinner db.Tag
	require.NoError(t, database.Where("slug = ?", "dinner").Take(&dinner).Error)

	second, err := Run(context.Background(), database, logger)
	require.NoError(t, err)
	for i, res := range second {
		assert.Zero(t, res.Created, res.Resource)
		assert.Equal(t, first[i].Created, res.Skipped, res.Resource)
	}
}
