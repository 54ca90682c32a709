package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/syncstore/internal/dbx"
	"github.com/dmitrijs2005/syncstore/internal/server/dialect"
	"github.com/dmitrijs2005/syncstore/internal/server/repositories/collections"
	"github.com/dmitrijs2005/syncstore/internal/server/repositories/items"
	"github.com/dmitrijs2005/syncstore/internal/server/repositories/users"
)

type RepositoryManager interface {
	Dialect() dialect.Dialect
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Collections(db dbx.DBTX) collections.Repository
	Items(db dbx.DBTX) items.Repository
}
