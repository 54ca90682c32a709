// Package dialect captures the SQL differences between the supported
// backing stores: placeholder syntax, upsert clauses, pagination, the
// transaction isolation used for multi-statement operations, and how a
// unique-constraint violation is reported.
package dialect

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect renders the backend-specific parts of a query. Queries are written
// with '?' placeholders and passed through Rebind before execution.
type Dialect interface {
	// Name is the configuration name: postgres, mysql or sqlite.
	Name() string
	// Driver is the database/sql driver name to open.
	Driver() string
	// GooseDialect is the dialect name understood by goose.SetDialect.
	GooseDialect() string

	Rebind(query string) string

	// Upsert renders the conflict clause appended to an INSERT into table.
	// Columns in update are overwritten with the inserted values; when keep
	// is set, a NULL inserted value keeps the stored one instead. An empty
	// update list makes the conflict a no-op.
	Upsert(table string, conflict, update []string, keep bool) string

	// LimitOffset renders pagination; non-positive values are ignored.
	LimitOffset(limit, offset int) string

	// BulkUpsert reports whether multi-row INSERT ... upsert is used for
	// batches. When false, batches are written one row per statement.
	BulkUpsert() bool

	// TxOptions are used for multi-statement operations.
	TxOptions() *sql.TxOptions

	IsUniqueViolation(err error) bool
}

// ByName returns the dialect registered under name.
func ByName(name string) (Dialect, error) {
	switch name {
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	case "mysql":
		return MySQL{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	}
	return nil, fmt.Errorf("unknown sql dialect %q", name)
}

// Placeholders returns n comma-separated '?' placeholders.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func limitOffset(limit, offset int, unbounded string) string {
	var b strings.Builder
	switch {
	case limit > 0:
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(limit))
	case offset > 0 && unbounded != "":
		b.WriteString(" LIMIT ")
		b.WriteString(unbounded)
	}
	if offset > 0 {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(offset))
	}
	return b.String()
}

// excludedUpsert renders the ON CONFLICT form shared by PostgreSQL and SQLite.
func excludedUpsert(table string, conflict, update []string, keep bool, excluded string) string {
	target := "ON CONFLICT (" + strings.Join(conflict, ", ") + ")"
	if len(update) == 0 {
		return target + " DO NOTHING"
	}
	sets := make([]string, len(update))
	for i, col := range update {
		if keep {
			sets[i] = fmt.Sprintf("%s = COALESCE(%s.%s, %s.%s)", col, excluded, col, table, col)
		} else {
			sets[i] = fmt.Sprintf("%s = %s.%s", col, excluded, col)
		}
	}
	return target + " DO UPDATE SET " + strings.Join(sets, ", ")
}
