package dberr

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
)

const sqliteUniquePrefix = "UNIQUE constraint failed: "

// ParsePostgresDetail extracts the column and value from a PostgreSQL
// unique_violation detail such as
//
//	Key (name)=(Soup) already exists.
//
// The full psycopg-style error text (message line followed by a "DETAIL:"
// line) is accepted as well; in that case the second line is parsed.
func ParsePostgresDetail(text string) (field, value string, ok bool) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	line := lines[0]
	if len(lines) > 1 {
		line = lines[1]
	}

	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "DETAIL:")
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "Key ")
	line = strings.TrimSuffix(line, " already exists.")
	line = strings.NewReplacer("(", "", ")", "").Replace(line)

	field, value, ok = strings.Cut(line, "=")
	if !ok || field == "" {
		return "", "", false
	}
	return field, value, true
}

// ParseSQLiteUnique recovers the column and attempted value of a SQLite
// uniqueness violation. message is the driver error text containing
// "UNIQUE constraint failed: <table>.<column>", statement is the SQL that
// failed and params its bound parameters in placeholder order.
func ParseSQLiteUnique(message, statement string, params []any) (field, value string, ok bool) {
	_, field, value, ok = parseSQLite(message, statement, params)
	return field, value, ok
}

func parseSQLite(message, statement string, params []any) (table, field, value string, ok bool) {
	idx := strings.Index(message, sqliteUniquePrefix)
	if idx < 0 {
		return "", "", "", false
	}
	qualified := message[idx+len(sqliteUniquePrefix):]
	// Composite constraints list every column; the first one is reported.
	if end := strings.IndexAny(qualified, " ,"); end >= 0 {
		qualified = qualified[:end]
	}
	table, field, found := strings.Cut(qualified, ".")
	if !found {
		table, field = "", qualified
	}
	if field == "" {
		return "", "", "", false
	}

	columns := statementColumns(statement)
	pos := -1
	for i, c := range columns {
		if c == field {
			pos = i
			break
		}
	}
	if pos < 0 || pos >= len(params) {
		return "", "", "", false
	}
	return table, field, formatParam(params[pos]), true
}

// statementColumns returns the column names in placeholder order: the column
// list of an INSERT or the assignment list of an UPDATE.
func statementColumns(statement string) []string {
	stmt := strings.TrimSpace(statement)
	upper := strings.ToUpper(stmt)

	var list string
	switch {
	case strings.HasPrefix(upper, "INSERT"):
		open := strings.Index(stmt, "(")
		if open < 0 {
			return nil
		}
		end := strings.Index(stmt[open:], ")")
		if end < 0 {
			return nil
		}
		list = stmt[open+1 : open+end]
	case strings.HasPrefix(upper, "UPDATE"):
		set := strings.Index(upper, " SET ")
		if set < 0 {
			return nil
		}
		list = stmt[set+len(" SET "):]
		if where := strings.Index(strings.ToUpper(list), " WHERE "); where >= 0 {
			list = list[:where]
		}
	default:
		return nil
	}

	parts := strings.Split(list, ",")
	columns := make([]string, 0, len(parts))
	for _, p := range parts {
		name, _, _ := strings.Cut(p, "=")
		columns = append(columns, unquoteIdent(name))
	}
	return columns
}

func unquoteIdent(s string) string {
	s = strings.TrimSpace(s)
	if dot := strings.LastIndex(s, "."); dot >= 0 {
		s = s[dot+1:]
	}
	return strings.Trim(s, "`\"[] ")
}

func formatParam(p any) string {
	rv := reflect.ValueOf(p)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "null"
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return "null"
	}
	v := rv.Interface()
	if valuer, ok := v.(driver.Valuer); ok {
		if dv, err := valuer.Value(); err == nil && dv != nil {
			v = dv
		}
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
