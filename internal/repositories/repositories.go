package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/larder-io/larder/internal/crud"
	"github.com/larder-io/larder/internal/db"
	"github.com/larder-io/larder/internal/dberr"
	"github.com/larder-io/larder/internal/payload"
)

// -----------------------------------------------------------------------------
// Common
// -----------------------------------------------------------------------------

// ListOptions contains common pagination options for list queries. A Limit of
// zero or less returns every row.
type ListOptions struct {
	Limit  int
	Offset int
}

// Applier is implemented by request payloads that copy themselves onto a
// model before it is written.
type Applier[M any] interface {
	ApplyTo(m *M)
}

var schemaCache sync.Map

// -----------------------------------------------------------------------------
// Generic
// -----------------------------------------------------------------------------

// Generic is the GORM repository shared by every resource. C and U are the
// create and update payloads. All queries run inside the request Session.
type Generic[M any, C Applier[M], U Applier[M]] struct {
	session *Session
	name    string
}

var _ crud.Repository[payload.FoodCreate, *db.Food, payload.FoodUpdate] = (*FoodRepository)(nil)

// NewGeneric returns a repository for model M. name prefixes wrapped errors.
func NewGeneric[M any, C Applier[M], U Applier[M]](session *Session, name string) *Generic[M, C, U] {
	return &Generic[M, C, U]{session: session, name: name}
}

func (r *Generic[M, C, U]) db(ctx context.Context) *gorm.DB {
	return r.session.DB().WithContext(ctx)
}

// GetOne retrieves a record by id, or by the column named by key when key is
// not empty. key must be a column of the model; it is never interpolated into
// the query. Returns ErrNotFound if no record matches.
func (r *Generic[M, C, U]) GetOne(ctx context.Context, id string, key string) (*M, error) {
	column, err := r.column(ctx, key)
	if err != nil {
		return nil, err
	}

	var m M
	err = r.db(ctx).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: id}).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: get one: %w", r.name, err)
	}
	return &m, nil
}

// Create inserts a new record built from data.
func (r *Generic[M, C, U]) Create(ctx context.Context, data C) (*M, error) {
	var m M
	data.ApplyTo(&m)

	if result := r.db(ctx).Create(&m); result.Error != nil {
		return nil, r.writeError("create", result)
	}
	return &m, nil
}

// Update replaces every field of the record identified by id with data.
func (r *Generic[M, C, U]) Update(ctx context.Context, id string, data U) (*M, error) {
	m, err := r.GetOne(ctx, id, "")
	if err != nil {
		return nil, err
	}
	data.ApplyTo(m)

	if result := r.db(ctx).Save(m); result.Error != nil {
		return nil, r.writeError("update", result)
	}
	return m, nil
}

// Patch writes only the given columns of the record identified by id and
// returns the record as stored afterwards. An empty fields map writes nothing.
func (r *Generic[M, C, U]) Patch(ctx context.Context, id string, fields map[string]any) (*M, error) {
	m, err := r.GetOne(ctx, id, "")
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return m, nil
	}

	if result := r.db(ctx).Model(m).Updates(fields); result.Error != nil {
		return nil, r.writeError("patch", result)
	}
	return r.GetOne(ctx, id, "")
}

// Delete removes the record identified by id and returns it as it was before
// deletion.
func (r *Generic[M, C, U]) Delete(ctx context.Context, id string) (*M, error) {
	m, err := r.GetOne(ctx, id, "")
	if err != nil {
		return nil, err
	}

	result := r.db(ctx).Delete(m)
	if result.Error != nil {
		return nil, r.writeError("delete", result)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return m, nil
}

// List returns a page of records ordered by creation time and the total
// count.
func (r *Generic[M, C, U]) List(ctx context.Context, opts ListOptions) ([]M, int64, error) {
	var items []M
	var total int64

	if err := r.db(ctx).Model(new(M)).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%s: list count: %w", r.name, err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	if err := r.db(ctx).
		Limit(limit).
		Offset(opts.Offset).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("%s: list: %w", r.name, err)
	}

	return items, total, nil
}

// Rollback aborts the request transaction.
func (r *Generic[M, C, U]) Rollback(_ context.Context) error {
	return r.session.Rollback()
}

// column resolves key to a database column of M. An empty key resolves to
// the primary key.
func (r *Generic[M, C, U]) column(ctx context.Context, key string) (string, error) {
	s, err := schema.Parse(new(M), &schemaCache, r.db(ctx).NamingStrategy)
	if err != nil {
		return "", fmt.Errorf("%s: parse schema: %w", r.name, err)
	}

	if key == "" {
		if s.PrioritizedPrimaryField == nil {
			return "", fmt.Errorf("%s: %w: model has no primary key", r.name, ErrUnknownKey)
		}
		return s.PrioritizedPrimaryField.DBName, nil
	}

	f := s.LookUpField(key)
	if f == nil || f.DBName == "" {
		return "", fmt.Errorf("%s: %w %q", r.name, ErrUnknownKey, key)
	}
	return f.DBName, nil
}

// writeError attaches the failed statement to the driver error so SQLite
// uniqueness violations can be traced back to the rejected value.
func (r *Generic[M, C, U]) writeError(op string, result *gorm.DB) error {
	stmt, _ := db.FailedStatementOf(result)
	err := dberr.Classify(&dberr.StatementError{
		SQL:  stmt.SQL,
		Vars: stmt.Vars,
		Err:  result.Error,
	})
	if dberr.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %s: %w: %w", r.name, op, ErrConflict, err)
	}
	return fmt.Errorf("%s: %s: %w", r.name, op, err)
}

// -----------------------------------------------------------------------------
// Resources
// -----------------------------------------------------------------------------

// Concrete repositories for the API resources.
type (
	FoodRepository = Generic[db.Food, payload.FoodCreate, payload.FoodUpdate]
	UnitRepository = Generic[db.Unit, payload.UnitCreate, payload.UnitUpdate]
	TagRepository  = Generic[db.Tag, payload.TagCreate, payload.TagUpdate]
)

// NewFoodRepository returns a repository over the foods table bound to session.
func NewFoodRepository(session *Session) *FoodRepository {
	return NewGeneric[db.Food, payload.FoodCreate, payload.FoodUpdate](session, "foods")
}

// NewUnitRepository returns a repository over the units table bound to session.
func NewUnitRepository(session *Session) *UnitRepository {
	return NewGeneric[db.Unit, payload.UnitCreate, payload.UnitUpdate](session, "units")
}

// NewTagRepository returns a repository over the tags table bound to session.
func NewTagRepository(session *Session) *TagRepository {
	return NewGeneric[db.Tag, payload.TagCreate, payload.TagUpdate](session, "tags")
}
