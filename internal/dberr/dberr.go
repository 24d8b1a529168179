// Package dberr turns driver-specific storage errors into structured values.
// Uniqueness violations from PostgreSQL (pgx) and SQLite (modernc) are
// reported in loosely structured text; the parsers here recover the offending
// column and the value that was rejected so callers never have to look at
// driver error strings themselves.
package dberr

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// ConstraintViolation is returned when a write is rejected because it would
// duplicate a value in a unique column.
type ConstraintViolation struct {
	Table string
	Field string
	Value string
	Err   error
}

func (e *ConstraintViolation) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("unique constraint violated on %s=%s", e.Field, e.Value)
}

func (e *ConstraintViolation) Unwrap() error { return e.Err }

// Message returns the user-facing text, e.g. "Name Soup is unavailable.".
func (e *ConstraintViolation) Message() string {
	return fmt.Sprintf("%s %s is unavailable.", Capitalize(e.Field), e.Value)
}

// StatementError carries the SQL statement and bound parameters of a failed
// write. SQLite does not report the rejected value, so it has to be recovered
// from the statement that produced the error.
type StatementError struct {
	SQL  string
	Vars []any
	Err  error
}

func (e *StatementError) Error() string { return e.Err.Error() }

func (e *StatementError) Unwrap() error { return e.Err }

// Classify inspects err and returns a *ConstraintViolation (wrapping err) when
// it is a uniqueness violation that can be parsed. Any other error, including
// a uniqueness violation whose text cannot be parsed, is returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var cv *ConstraintViolation
	if errors.As(err, &cv) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return err
		}
		field, value, ok := ParsePostgresDetail(pgErr.Detail)
		if !ok {
			return err
		}
		return &ConstraintViolation{Table: pgErr.TableName, Field: field, Value: value, Err: err}
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		default:
			return err
		}
	}

	// Other SQLite drivers (mattn/go-sqlite3) only expose the message, so fall
	// through to text matching whenever the statement is known.
	var stmtErr *StatementError
	if !errors.As(err, &stmtErr) {
		return err
	}
	table, field, value, ok := parseSQLite(stmtErr.Err.Error(), stmtErr.SQL, stmtErr.Vars)
	if !ok {
		return err
	}
	return &ConstraintViolation{Table: table, Field: field, Value: value, Err: err}
}

// IsUniqueViolation reports whether err is, or classifies as, a uniqueness
// violation.
func IsUniqueViolation(err error) bool {
	var cv *ConstraintViolation
	return errors.As(Classify(err), &cv)
}

// Capitalize upper-cases the first letter of s and lower-cases the rest.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	lower := []rune(s[size:])
	for i, c := range lower {
		lower[i] = unicode.ToLower(c)
	}
	return string(unicode.ToUpper(r)) + string(lower)
}
