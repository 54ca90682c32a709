package dialect

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// Postgres targets PostgreSQL through the pgx stdlib driver.
type Postgres struct{}

func (Postgres) Name() string         { return "postgres" }
func (Postgres) Driver() string       { return "pgx" }
func (Postgres) GooseDialect() string { return "postgres" }
func (Postgres) BulkUpsert() bool     { return true }

// Rebind rewrites '?' placeholders as $1, $2, ...
func (Postgres) Rebind(query string) string {
	n := strings.Count(query, "?")
	if n == 0 {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + n*2)
	i := 0
	for _, r := range query {
		if r == '?' {
			i++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(i))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (Postgres) Upsert(table string, conflict, update []string, keep bool) string {
	return excludedUpsert(table, conflict, update, keep, "EXCLUDED")
}

func (Postgres) LimitOffset(limit, offset int) string {
	return limitOffset(limit, offset, "")
}

func (Postgres) TxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

func (Postgres) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
