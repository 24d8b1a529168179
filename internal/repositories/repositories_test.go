package repositories

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/larder-io/larder/internal/db"
	"github.com/larder-io/larder/internal/dberr"
	"github.com/larder-io/larder/internal/payload"
)

func strPtr(s string) *string { return &s }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := db.New(db.Config{
		Driver: db.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "larder.db"),
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(database) })
	return database
}

func newSession(t *testing.T, database *gorm.DB) *Session {
	t.Helper()
	s, err := Begin(context.Background(), database)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Rollback() })
	return s
}

func TestGeneric_CreateAndGetOne(t *testing.T) {
	ctx := context.Background()
	repo := NewTagRepository(newSession(t, newTestDB(t)))

	created, err := repo.Create(ctx, payload.TagCreate{Name: "Weeknight Dinner"})
	require.NoError(t, err)
	assert.Equal(t, "weeknight-dinner", created.Slug)

	byID, err := repo.GetOne(ctx, created.ID.String(), "")
	require.NoError(t, err)
	assert.Equal(t, created.Name, byID.Name)

	bySlug, err := repo.GetOne(ctx, "weeknight-dinner", "slug")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)
}

func TestGeneric_GetOne_Errors(t *testing.T) {
	ctx := context.Background()
	repo := NewFoodRepository(newSession(t, newTestDB(t)))

	_, err := repo.GetOne(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetOne(ctx, "x", "name; DROP TABLE foods")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestGeneric_Create_UniqueViolation(t *testing.T) {
	ctx := context.Background()
	repo := NewFoodRepository(newSession(t, newTestDB(t)))

	_, err := repo.Create(ctx, payload.FoodCreate{Name: "Soup"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, payload.FoodCreate{Name: "Soup"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)

	var cv *dberr.ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "name", cv.Field)
	assert.Equal(t, "Soup", cv.Value)
	assert.Equal(t, "Name Soup is unavailable.", cv.Message())
}

func TestGeneric_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewUnitRepository(newSession(t, newTestDB(t)))

	cup, err := repo.Create(ctx, payload.UnitCreate{Name: "Cup", Abbreviation: "c"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, payload.UnitCreate{Name: "Gram"})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, cup.ID.String(), payload.UnitUpdate{Name: strPtr("Mug")})
	require.NoError(t, err)
	assert.Equal(t, "Mug", updated.Name)
	assert.Empty(t, updated.Abbreviation)
	assert.True(t, updated.Fraction)

	_, err = repo.Update(ctx, cup.ID.String(), payload.UnitUpdate{Name: strPtr("Gram")})
	var cv *dberr.ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "Name Gram is unavailable.", cv.Message())

	_, err = repo.Update(ctx, "missing", payload.UnitUpdate{Name: strPtr("Mug")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGeneric_Patch(t *testing.T) {
	ctx := context.Background()
	repo := NewUnitRepository(newSession(t, newTestDB(t)))

	cup, err := repo.Create(ctx, payload.UnitCreate{Name: "Cup", Abbreviation: "c", Description: "Imperial"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, payload.UnitCreate{Name: "Gram"})
	require.NoError(t, err)

	patched, err := repo.Patch(ctx, cup.ID.String(), map[string]any{"abbreviation": "cp", "fraction": false})
	require.NoError(t, err)
	assert.Equal(t, "Cup", patched.Name)
	assert.Equal(t, "cp", patched.Abbreviation)
	assert.Equal(t, "Imperial", patched.Description)
	assert.False(t, patched.Fraction)

	unchanged, err := repo.Patch(ctx, cup.ID.String(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "cp", unchanged.Abbreviation)

	_, err = repo.Patch(ctx, cup.ID.String(), map[string]any{"name": "Gram"})
	var cv *dberr.ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "Name Gram is unavailable.", cv.Message())
}

func TestGeneric_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewFoodRepository(newSession(t, newTestDB(t)))

	soup, err := repo.Create(ctx, payload.FoodCreate{Name: "Soup"})
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, soup.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Soup", deleted.Name)

	_, err = repo.GetOne(ctx, soup.ID.String(), "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Delete(ctx, soup.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGeneric_List(t *testing.T) {
	ctx := context.Background()
	repo := NewFoodRepository(newSession(t, newTestDB(t)))

	for _, name := range []string{"Apple", "Bread", "Cheese"} {
		_, err := repo.Create(ctx, payload.FoodCreate{Name: name})
		require.NoError(t, err)
	}

	all, total, err := repo.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	page, total, err := repo.List(ctx, ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 2)
}

func TestSession_Rollback(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	s, err := Begin(ctx, database)
	require.NoError(t, err)
	_, err = NewFoodRepository(s).Create(ctx, payload.FoodCreate{Name: "Soup"})
	require.NoError(t, err)

	require.NoError(t, NewFoodRepository(s).Rollback(ctx))
	assert.True(t, s.Closed())
	assert.NoError(t, s.Rollback(), "second rollback is a no-op")
	assert.ErrorIs(t, s.Commit(), ErrSessionClosed)

	var count int64
	require.NoError(t, database.Model(&db.Food{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSession_Commit(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	s, err := Begin(ctx, database)
	require.NoError(t, err)
	_, err = NewFoodRepository(s).Create(ctx, payload.FoodCreate{Name: "Soup"})
	require.NoError(t, err)
	require.NoError(t, s.Commit())

	var count int64
	require.NoError(t, database.Model(&db.Food{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSessionContext(t *testing.T) {
	_, ok := SessionFrom(context.Background())
	assert.False(t, ok)

	s := &Session{}
	got, ok := SessionFrom(WithSession(context.Background(), s))
	require.True(t, ok)
	assert.Same(t, s, got)
}
