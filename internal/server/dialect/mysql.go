package dialect

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlDuplicateEntry = 1062
	// MySQL has no OFFSET without LIMIT; this is the documented workaround.
	mysqlMaxRows = "18446744073709551615"
)

// MySQL targets MySQL/MariaDB through go-sql-driver/mysql.
type MySQL struct{}

func (MySQL) Name() string               { return "mysql" }
func (MySQL) Driver() string             { return "mysql" }
func (MySQL) GooseDialect() string       { return "mysql" }
func (MySQL) BulkUpsert() bool           { return true }
func (MySQL) Rebind(query string) string { return query }

// Upsert renders ON DUPLICATE KEY UPDATE. The conflict target is implied by
// the table's unique keys.
func (MySQL) Upsert(table string, conflict, update []string, keep bool) string {
	if len(update) == 0 {
		col := conflict[0]
		return fmt.Sprintf("ON DUPLICATE KEY UPDATE %s = %s", col, col)
	}
	sets := make([]string, len(update))
	for i, col := range update {
		if keep {
			sets[i] = fmt.Sprintf("%s = COALESCE(VALUES(%s), %s)", col, col, col)
		} else {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
		}
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}

func (MySQL) LimitOffset(limit, offset int) string {
	return limitOffset(limit, offset, mysqlMaxRows)
}

func (MySQL) TxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

func (MySQL) IsUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
