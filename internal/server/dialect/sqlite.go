package dialect

import (
	"database/sql"
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLite targets modernc.org/sqlite. Batches are written row by row, so
// set_items is not atomic on this backend.
type SQLite struct{}

func (SQLite) Name() string               { return "sqlite" }
func (SQLite) Driver() string             { return "sqlite" }
func (SQLite) GooseDialect() string       { return "sqlite3" }
func (SQLite) BulkUpsert() bool           { return false }
func (SQLite) Rebind(query string) string { return query }

func (SQLite) Upsert(table string, conflict, update []string, keep bool) string {
	return excludedUpsert(table, conflict, update, keep, "excluded")
}

func (SQLite) LimitOffset(limit, offset int) string {
	return limitOffset(limit, offset, "-1")
}

// TxOptions is nil: SQLite transactions are serializable already and the
// driver rejects most explicit isolation levels.
func (SQLite) TxOptions() *sql.TxOptions {
	return nil
}

func (SQLite) IsUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return false
	}
	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
