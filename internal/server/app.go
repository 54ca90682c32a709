// Package server wires the configured database, schema migrations and the
// storage engine together and runs the background maintenance loop until the
// process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/syncstore/internal/logging"
	"github.com/dmitrijs2005/syncstore/internal/server/config"
	"github.com/dmitrijs2005/syncstore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/syncstore/internal/server/storage"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	engine *storage.Engine
}

// NewApp opens the database named by c, brings its schema up to date and
// builds the storage engine.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stdout, level)

	db, d, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN, c.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewSQLRepositoryManager(d)
	if err := repos.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	engine := storage.New(db, repos, c.StandardCollections, logger)

	return &App{config: c, logger: logger, db: db, engine: engine}, nil
}

// Engine returns the storage engine for the front end to serve requests with.
func (app *App) Engine() *storage.Engine {
	return app.engine
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// purgeExpired removes expired items every interval until ctx is done.
func (app *App) purgeExpired(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.engine.PurgeExpired(ctx); err != nil {
				app.logger.Warn(ctx, "purge of expired items failed", "error", err)
			}
		}
	}
}

// Run blocks until ctx is cancelled or a termination signal arrives, then
// closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "driver", app.config.DatabaseDriver)

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	if app.config.PurgeInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.purgeExpired(ctx, app.config.PurgeInterval)
		}()
	}

	<-ctx.Done()
	wg.Wait()

	app.logger.Info(context.Background(), "Stopping app...")
	if err := app.db.Close(); err != nil {
		return fmt.Errorf("db close error: %w", err)
	}
	return nil
}
