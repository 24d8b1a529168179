package repositories

import (
	"errors"

	"github.com/larder-io/larder/internal/crud"
)

// ErrNotFound is returned when the requested record does not exist. It is
// the sentinel the crud bridge turns into a 404.
//
//	food, err := repo.GetOne(ctx, id, "")
//	if errors.Is(err, repositories.ErrNotFound) {
//	    handle not found
//	}
var ErrNotFound = crud.ErrNotFound

// ErrConflict is returned, alongside the *dberr.ConstraintViolation, when a
// write collides with a unique column such as foods.name.
var ErrConflict = errors.New("record already exists")

// ErrUnknownKey is returned by GetOne when the lookup key is not a column of
// the model.
var ErrUnknownKey = errors.New("unknown lookup key")

// ErrSessionClosed is returned when a session is used after it was
// committed or rolled back.
var ErrSessionClosed = errors.New("session already closed")
