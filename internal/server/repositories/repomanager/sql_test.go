package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/syncstore/internal/server/dialect"
	"github.com/dmitrijs2005/syncstore/internal/server/repositories/collections"
	"github.com/dmitrijs2005/syncstore/internal/server/repositories/items"
	"github.com/dmitrijs2005/syncstore/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	var m RepositoryManager = NewSQLRepositoryManager(dialect.Postgres{})

	assert.Equal(t, "postgres", m.Dialect().Name())
	var _ users.Repository = m.Users(db)
	var _ collections.Repository = m.Collections(db)
	var _ items.Repository = m.Items(db)
	assert.NotNil(t, m.Users(db))
	assert.NotNil(t, m.Collections(db))
	assert.NotNil(t, m.Items(db))
}

func TestRunMigrations_UsesDialectDir(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	for _, d := range []dialect.Dialect{dialect.Postgres{}, dialect.MySQL{}, dialect.SQLite{}} {
		orig := gooseUpContext
		var gotDir string
		gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			gotDir = dir
			if len(opts) != 0 {
				return errors.New("unexpected opts")
			}
			return nil
		}

		err := NewSQLRepositoryManager(d).RunMigrations(context.Background(), db)
		gooseUpContext = orig

		require.NoError(t, err, d.Name())
		assert.Equal(t, d.Name(), gotDir)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	err := NewSQLRepositoryManager(dialect.Postgres{}).RunMigrations(context.Background(), db)
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), "oracle", "x", 1)
	assert.Error(t, err)
}

func TestOpenAndMigrate_SQLite(t *testing.T) {
	ctx := context.Background()
	db, d, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "store.db"), 20)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	m := NewSQLRepositoryManager(d)
	require.NoError(t, m.RunMigrations(ctx, db))
	// a second run finds nothing to apply
	require.NoError(t, m.RunMigrations(ctx, db))

	for _, table := range []string{"users", "collections", "wbo"} {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}
