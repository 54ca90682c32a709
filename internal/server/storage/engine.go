// Package storage implements the per-user collection object store on top of
// the SQL repositories.
//
// Not-found results are reported with a boolean rather than an error.
// Validation problems in queries surface as common.ErrInvalidFilter or
// common.ErrInvalidField. Every other failure of the backing store is a
// *common.StoreError, which matches common.ErrStorageUnavailable and keeps
// backend detail out of its message; the detail is logged instead.
package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/syncstore/internal/common"
	"github.com/dmitrijs2005/syncstore/internal/dbx"
	"github.com/dmitrijs2005/syncstore/internal/logging"
	"github.com/dmitrijs2005/syncstore/internal/server/index"
	"github.com/dmitrijs2005/syncstore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/syncstore/internal/timex"
	"github.com/facebookgo/clock"
)

// Engine stores users, collections and items on one SQL database.
type Engine struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	index  *index.Index
	logger logging.Logger
	clock  clock.Clock
}

// Option configures an Engine built by New.
type Option func(*Engine)

// WithClock replaces the wall clock as the source of write timestamps.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New returns an Engine over db. standard enables the well-known collection
// table.
func New(db *sql.DB, repos repomanager.RepositoryManager, standard bool, logger logging.Logger, opts ...Option) *Engine {
	logger = logger.With("component", "storage")
	e := &Engine{
		db:     db,
		repos:  repos,
		index:  index.New(repos.Collections(db), repos.Dialect(), standard, logger),
		logger: logger,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// now is the current time at store precision.
func (e *Engine) now() float64 {
	return timex.Round(timex.FromTime(e.clock.Now()))
}

// withTx runs fn in one transaction using the dialect's isolation options.
func (e *Engine) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, e.db, e.repos.Dialect().TxOptions(), fn)
}

// fail classifies err for the caller. Query validation errors pass through;
// anything else is logged and reported as storage unavailable.
func (e *Engine) fail(ctx context.Context, op string, err error) error {
	if errors.Is(err, common.ErrInvalidFilter) || errors.Is(err, common.ErrInvalidField) {
		return err
	}
	var se *common.StoreError
	if errors.As(err, &se) {
		return err
	}
	e.logger.Error(ctx, "store operation failed", "op", op, "error", err)
	return &common.StoreError{Op: op, Err: err}
}
