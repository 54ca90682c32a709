// Package repomanager opens the configured database and wires together the
// repository constructors and schema migrations (via goose) for its dialect.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/syncstore/internal/dbx"
	"github.com/dmitrijs2005/syncstore/internal/server/dialect"
	"github.com/dmitrijs2005/syncstore/internal/server/migrations"
	"github.com/dmitrijs2005/syncstore/internal/server/repositories/collections"
	"github.com/dmitrijs2005/syncstore/internal/server/repositories/items"
	"github.com/dmitrijs2005/syncstore/internal/server/repositories/users"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLRepositoryManager vends repositories for one SQL dialect and exposes a
// schema migration hook.
type SQLRepositoryManager struct {
	d dialect.Dialect
}

// NewSQLRepositoryManager constructs a RepositoryManager for d.
func NewSQLRepositoryManager(d dialect.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{d: d}
}

func (m *SQLRepositoryManager) Dialect() dialect.Dialect {
	return m.d
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.d)
}

// Collections returns a collections.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Collections(db dbx.DBTX) collections.Repository {
	return collections.NewSQLRepository(db, m.d)
}

// Items returns an items.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Items(db dbx.DBTX) items.Repository {
	return items.NewSQLRepository(db, m.d)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations of the dialect
// and runs them against the provided database connection.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.d.GooseDialect()); err != nil {
		return fmt.Errorf("migration dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, m.d.Name()); err != nil {
		return err
	}
	return nil
}

// Open connects to the database named by driver (postgres, mysql or sqlite)
// and checks the connection. SQLite is limited to a single connection since
// it allows only one writer at a time.
func Open(ctx context.Context, driver, dsn string, maxOpenConns int) (*sql.DB, dialect.Dialect, error) {
	d, err := dialect.ByName(driver)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(d.Driver(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}

	if d.Name() == "sqlite" {
		maxOpenConns = 1
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, d, nil
}
