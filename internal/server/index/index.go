// Package index maps collection names to per-user integer ids.
//
// Custom collections get the next free id for the user when first written.
// In standard mode the well-known names resolve to fixed ids without a
// store round trip and custom ids are allocated above them. Id to name
// lookups go through a per-user cache that is reloaded from the store on a
// miss and dropped by Invalidate.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/syncstore/internal/common"
	"github.com/dmitrijs2005/syncstore/internal/logging"
	"github.com/dmitrijs2005/syncstore/internal/server/dialect"
	"github.com/dmitrijs2005/syncstore/internal/server/models"
	"github.com/dmitrijs2005/syncstore/internal/server/repositories/collections"
	"github.com/sethvargo/go-retry"
)

const (
	allocRetries = 5
	allocBackoff = 10 * time.Millisecond
)

type Index struct {
	repo     collections.Repository
	dialect  dialect.Dialect
	standard bool
	logger   logging.Logger
	backoff  func() retry.Backoff

	mu    sync.RWMutex
	names map[int64]map[int64]string
	// gens counts invalidations per user. A snapshot loaded across an
	// invalidation is not cached.
	gens map[int64]uint64
}

// New returns an Index reading and writing collections through repo.
// standard enables the well-known collection table.
func New(repo collections.Repository, d dialect.Dialect, standard bool, logger logging.Logger) *Index {
	return &Index{
		repo:     repo,
		dialect:  d,
		standard: standard,
		logger:   logger,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(allocRetries, retry.NewConstant(allocBackoff))
		},
		names: make(map[int64]map[int64]string),
		gens:  make(map[int64]uint64),
	}
}

// Standard reports whether the well-known table is in use.
func (ix *Index) Standard() bool {
	return ix.standard
}

// WellKnown returns the fixed id of name when standard mode is on.
func (ix *Index) WellKnown(name string) (int64, bool) {
	if !ix.standard {
		return 0, false
	}
	return WellKnownID(name)
}

// Resolve returns the id of the user's collection name. A missing collection
// is created when create is set and reported as common.ErrorNotFound
// otherwise.
func (ix *Index) Resolve(ctx context.Context, userID int64, name string, create bool) (int64, error) {
	if id, ok := ix.WellKnown(name); ok {
		return id, nil
	}

	c, err := ix.repo.GetByName(ctx, userID, name, []models.CollectionField{models.CollectionFieldID})
	if err == nil {
		return c.ID, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return 0, err
	}
	if !create {
		return 0, common.ErrorNotFound
	}

	id, _, err := ix.Create(ctx, userID, name)
	return id, err
}

// Create allocates an id for name unless the collection already exists, in
// which case the existing id is returned with created == false. Concurrent
// creators of the same name agree on one id; the loser of an insert race
// retries and then finds the winner's row.
func (ix *Index) Create(ctx context.Context, userID int64, name string) (int64, bool, error) {
	if id, ok := ix.WellKnown(name); ok {
		return id, false, nil
	}

	var (
		id      int64
		created bool
		attempt int
	)
	err := retry.Do(ctx, ix.backoff(), func(ctx context.Context) error {
		attempt++
		c, err := ix.repo.GetByName(ctx, userID, name, []models.CollectionField{models.CollectionFieldID})
		if err == nil {
			id, created = c.ID, false
			return nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		maxID, err := ix.repo.MaxID(ctx, userID)
		if err != nil {
			return err
		}
		next := maxID + 1
		if ix.standard && next <= maxWellKnownID {
			next = maxWellKnownID + 1
		}

		err = ix.repo.Insert(ctx, models.Collection{UserID: userID, ID: next, Name: name})
		if err != nil {
			if ix.dialect.IsUniqueViolation(err) {
				ix.logger.Warn(ctx, "collection id collision", "user", userID, "collection", name, "id", next, "attempt", attempt)
				return retry.RetryableError(err)
			}
			return err
		}
		id, created = next, true
		return nil
	})
	if err != nil {
		if ix.dialect.IsUniqueViolation(err) {
			return 0, false, fmt.Errorf("%w: %s after %d attempts", common.ErrCollectionConflict, name, attempt)
		}
		return 0, false, err
	}

	if created {
		ix.remember(userID, id, name)
	}
	return id, created, nil
}

// NameOf returns the name of the user's collection id. A cache miss reloads
// the user's names from the store once; an id still unknown after that is
// common.ErrorNotFound.
func (ix *Index) NameOf(ctx context.Context, userID, id int64) (string, error) {
	if ix.standard {
		if name, ok := WellKnownName(id); ok {
			return name, nil
		}
	}

	ix.mu.RLock()
	name, ok := ix.names[userID][id]
	gen := ix.gens[userID]
	ix.mu.RUnlock()
	if ok {
		return name, nil
	}

	names, err := ix.repo.Names(ctx, userID)
	if err != nil {
		return "", err
	}
	name, ok = names[id]
	ix.mu.Lock()
	if ix.gens[userID] == gen {
		ix.names[userID] = names
	}
	ix.mu.Unlock()

	if !ok {
		return "", common.ErrorNotFound
	}
	return name, nil
}

// Invalidate drops the cached names of a user.
func (ix *Index) Invalidate(ctx context.Context, userID int64) {
	ix.mu.Lock()
	_, had := ix.names[userID]
	delete(ix.names, userID)
	ix.gens[userID]++
	ix.mu.Unlock()
	if had {
		ix.logger.Debug(ctx, "collection cache invalidated", "user", userID)
	}
}

func (ix *Index) remember(userID, id int64, name string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	names, ok := ix.names[userID]
	if !ok {
		names = make(map[int64]string)
		ix.names[userID] = names
	}
	names[id] = name
}
