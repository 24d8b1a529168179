package db

import (
	"fmt"

	"gorm.io/gorm"
)

const failedStatementKey = "larder:failed_statement"

// FailedStatement is the SQL and bound parameters of a write the database
// rejected. GORM clears both once the statement has run, so they are recorded
// by a callback while they are still available.
type FailedStatement struct {
	SQL  string
	Vars []any
}

// FailedStatementOf returns the statement recorded for the failed operation
// that produced result.
func FailedStatementOf(result *gorm.DB) (FailedStatement, bool) {
	v, ok := result.InstanceGet(failedStatementKey)
	if !ok {
		return FailedStatement{}, false
	}
	fs, ok := v.(FailedStatement)
	return fs, ok
}

func recordFailedStatement(tx *gorm.DB) {
	if tx.Error == nil || tx.Statement.SQL.Len() == 0 {
		return
	}
	tx.InstanceSet(failedStatementKey, FailedStatement{
		SQL:  tx.Statement.SQL.String(),
		Vars: append([]any(nil), tx.Statement.Vars...),
	})
}

func registerCallbacks(database *gorm.DB) error {
	cb := database.Callback()
	if err := cb.Create().After("gorm:create").Register("larder:record_failed_create", recordFailedStatement); err != nil {
		return fmt.Errorf("db: register create callback: %w", err)
	}
	if err := cb.Update().After("gorm:update").Register("larder:record_failed_update", recordFailedStatement); err != nil {
		return fmt.Errorf("db: register update callback: %w", err)
	}
	if err := cb.Delete().After("gorm:delete").Register("larder:record_failed_delete", recordFailedStatement); err != nil {
		return fmt.Errorf("db: register delete callback: %w", err)
	}
	return nil
}
