// Package crud implements the bridge between HTTP handlers and a generic
// repository. Every operation either returns the repository's result or an
// *HTTPError: a 404 when the addressed record does not exist, or a 400 when
// the repository rejected a write. Write failures are logged and the request
// transaction is rolled back before the error is returned.
//
// A Bridge is cheap and holds no state of its own; handlers build one per
// request around the request-scoped repository:
//
//	bridge := crud.New(repositories.NewFoodRepository(session), logger)
//	food, err := bridge.CreateOne(ctx, req)
package crud

import (
	"context"
	"errors"
	"reflect"

	"go.uber.org/zap"

	"github.com/larder-io/larder/internal/dberr"
)

// Repository is the data-access capability consumed by the bridge. C is the
// create payload, R the stored item and U the update payload.
type Repository[C, R, U any] interface {
	// GetOne looks up a record by id. key names an alternate unique column;
	// an empty key means the primary key. A missing record is reported as
	// ErrNotFound.
	GetOne(ctx context.Context, id string, key string) (R, error)
	Create(ctx context.Context, data C) (R, error)
	Update(ctx context.Context, id string, data U) (R, error)
	Patch(ctx context.Context, id string, fields map[string]any) (R, error)
	Delete(ctx context.Context, id string) (R, error)

	// Rollback aborts the transaction the repository is working in.
	Rollback(ctx context.Context) error
}

// MessageMapper chooses the display message for errors that are not
// uniqueness violations.
type MessageMapper interface {
	Message(err error) string
}

// MessageMapperFunc adapts a function to MessageMapper.
type MessageMapperFunc func(err error) string

func (f MessageMapperFunc) Message(err error) string { return f(err) }

// FailureKind classifies a failed bridge operation.
type FailureKind string

const (
	FailureNotFound            FailureKind = "not_found"
	FailureConstraintViolation FailureKind = "constraint_violation"
	FailureStorage             FailureKind = "storage_error"
)

// FailureObserver is notified of every failed operation.
type FailureObserver interface {
	ObserveFailure(kind FailureKind)
}

type options struct {
	mapper         MessageMapper
	defaultMessage string
	observer       FailureObserver
}

// Option configures a Bridge.
type Option func(*options)

// WithMessageMapper sets the mapper consulted for non-uniqueness errors.
func WithMessageMapper(m MessageMapper) Option {
	return func(o *options) { o.mapper = m }
}

// WithDefaultMessage overrides DefaultMessage. An empty message is ignored.
func WithDefaultMessage(msg string) Option {
	return func(o *options) {
		if msg != "" {
			o.defaultMessage = msg
		}
	}
}

// WithObserver registers a FailureObserver.
func WithObserver(obs FailureObserver) Option {
	return func(o *options) { o.observer = obs }
}

// Bridge forwards CRUD calls to a Repository and converts its failures into
// *HTTPError values.
type Bridge[C, R, U any] struct {
	repo   Repository[C, R, U]
	logger *zap.Logger
	opts   options
}

// New returns a Bridge over repo. The repository and logger are shared, not
// owned.
func New[C, R, U any](repo Repository[C, R, U], logger *zap.Logger, opts ...Option) *Bridge[C, R, U] {
	o := options{defaultMessage: DefaultMessage}
	for _, opt := range opts {
		opt(&o)
	}
	return &Bridge[C, R, U]{
		repo:   repo,
		logger: logger,
		opts:   o,
	}
}

// CreateOne creates a record from data.
func (b *Bridge[C, R, U]) CreateOne(ctx context.Context, data C) (R, error) {
	item, err := b.repo.Create(ctx, data)
	if err != nil {
		var zero R
		return zero, b.HandleError(ctx, err)
	}
	return item, nil
}

// GetOne returns the record identified by id (looked up by key when key is
// not empty) exactly as the repository returned it.
func (b *Bridge[C, R, U]) GetOne(ctx context.Context, id string, key string) (R, error) {
	return b.lookup(ctx, id, key)
}

// UpdateOne replaces the record identified by id with data. The record must
// exist; otherwise a 404 is returned and nothing is written.
func (b *Bridge[C, R, U]) UpdateOne(ctx context.Context, data U, id string) (R, error) {
	var zero R
	if _, err := b.lookup(ctx, id, ""); err != nil {
		return zero, err
	}

	item, err := b.repo.Update(ctx, id, data)
	if err != nil {
		return zero, b.HandleError(ctx, err)
	}
	return item, nil
}

// PatchOne applies the fields of data that were explicitly set and differ
// from their default to the record identified by id. The record must exist.
func (b *Bridge[C, R, U]) PatchOne(ctx context.Context, data U, id string) (R, error) {
	var zero R
	if _, err := b.lookup(ctx, id, ""); err != nil {
		return zero, err
	}

	item, err := b.repo.Patch(ctx, id, PatchFields(data))
	if err != nil {
		return zero, b.HandleError(ctx, err)
	}
	return item, nil
}

// DeleteOne deletes the record identified by id and returns it.
func (b *Bridge[C, R, U]) DeleteOne(ctx context.Context, id string) (R, error) {
	item, err := b.repo.Delete(ctx, id)
	if err != nil {
		var zero R
		return zero, b.HandleError(ctx, err)
	}
	b.logger.Info("deleted item", zap.String("id", id))
	return item, nil
}

// Message returns the user-facing message for err.
func (b *Bridge[C, R, U]) Message(err error) string {
	var cv *dberr.ConstraintViolation
	if errors.As(dberr.Classify(err), &cv) {
		return cv.Message()
	}
	if b.opts.mapper != nil {
		return b.opts.mapper.Message(err)
	}
	return b.opts.defaultMessage
}

// HandleError logs err, rolls back the request transaction and returns the
// 400 that terminates the request.
func (b *Bridge[C, R, U]) HandleError(ctx context.Context, err error) *HTTPError {
	b.logger.Error("repository operation failed", zap.Error(err))

	if rbErr := b.repo.Rollback(ctx); rbErr != nil {
		b.logger.Warn("rollback failed", zap.Error(rbErr))
	}

	if dberr.IsUniqueViolation(err) {
		b.observe(FailureConstraintViolation)
	} else {
		b.observe(FailureStorage)
	}

	return BadRequest(b.Message(err), err)
}

func (b *Bridge[C, R, U]) lookup(ctx context.Context, id, key string) (R, error) {
	var zero R
	item, err := b.repo.GetOne(ctx, id, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			b.observe(FailureNotFound)
			return zero, NotFound()
		}
		return zero, b.HandleError(ctx, err)
	}
	if isZero(item) {
		b.observe(FailureNotFound)
		return zero, NotFound()
	}
	return item, nil
}

func (b *Bridge[C, R, U]) observe(kind FailureKind) {
	if b.opts.observer != nil {
		b.opts.observer.ObserveFailure(kind)
	}
}

func isZero[T any](v T) bool {
	return reflect.ValueOf(&v).Elem().IsZero()
}
