package repositories

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// Session is the database transaction of a single request. Repositories built
// on the same session see each other's writes, and Rollback undoes all of
// them.
type Session struct {
	mu     sync.Mutex
	tx     *gorm.DB
	closed bool
}

// Begin opens a transaction on database.
func Begin(ctx context.Context, database *gorm.DB) (*Session, error) {
	tx := database.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("session: begin: %w", tx.Error)
	}
	return &Session{tx: tx}, nil
}

// DB returns the transaction handle.
func (s *Session) DB() *gorm.DB {
	return s.tx
}

// Closed reports whether the session was committed or rolled back.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Commit commits the transaction. Committing a closed session returns
// ErrSessionClosed.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	if err := s.tx.Commit().Error; err != nil {
		return fmt.Errorf("session: commit: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Calling it on a closed session is a no-op.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.tx.Rollback().Error; err != nil {
		return fmt.Errorf("session: rollback: %w", err)
	}
	return nil
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored in ctx by WithSession.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok
}
