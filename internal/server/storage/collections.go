package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/syncstore/internal/common"
	"github.com/dmitrijs2005/syncstore/internal/dbx"
	"github.com/dmitrijs2005/syncstore/internal/server/index"
	"github.com/dmitrijs2005/syncstore/internal/server/models"
)

func (e *Engine) CollectionExists(ctx context.Context, userID int64, name string) (bool, error) {
	if _, ok := e.index.WellKnown(name); ok {
		return true, nil
	}
	_, err := e.index.Resolve(ctx, userID, name, false)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, e.fail(ctx, "collection_exists", err)
	}
	return true, nil
}

// CreateCollection returns the id of the collection, allocating one when it
// does not exist yet.
func (e *Engine) CreateCollection(ctx context.Context, userID int64, name string) (int64, error) {
	id, _, err := e.index.Create(ctx, userID, name)
	if err != nil {
		return 0, e.fail(ctx, "create_collection", err)
	}
	return id, nil
}

// GetCollection returns the collection, creating it first if the user has
// none by that name. Only the requested fields are set.
func (e *Engine) GetCollection(ctx context.Context, userID int64, name string, fields ...models.CollectionField) (*models.Collection, error) {
	if err := checkCollectionFields(fields); err != nil {
		return nil, err
	}
	id, err := e.index.Resolve(ctx, userID, name, true)
	if err != nil {
		return nil, e.fail(ctx, "get_collection", err)
	}
	c := pick(models.Collection{UserID: userID, ID: id, Name: name}, fields)
	return &c, nil
}

// ListCollections returns the user's collections ordered by id. In standard
// mode the well-known collections come first.
func (e *Engine) ListCollections(ctx context.Context, userID int64, fields ...models.CollectionField) ([]models.Collection, error) {
	if err := checkCollectionFields(fields); err != nil {
		return nil, err
	}
	stored, err := e.repos.Collections(e.db).List(ctx, userID, nil)
	if err != nil {
		return nil, e.fail(ctx, "list_collections", err)
	}

	var result []models.Collection
	seen := make(map[string]bool)
	if e.index.Standard() {
		for _, id := range index.WellKnownIDs() {
			name, _ := index.WellKnownName(id)
			seen[name] = true
			result = append(result, pick(models.Collection{UserID: userID, ID: id, Name: name}, fields))
		}
	}
	for _, c := range stored {
		if seen[c.Name] {
			continue
		}
		result = append(result, pick(c, fields))
	}
	return result, nil
}

func (e *Engine) ListCollectionNames(ctx context.Context, userID int64) ([]string, error) {
	list, err := e.ListCollections(ctx, userID, models.CollectionFieldName)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Name
	}
	return names, nil
}

// DeleteCollection removes the collection and its items. Deleting a missing
// collection is a no-op.
func (e *Engine) DeleteCollection(ctx context.Context, userID int64, name string) error {
	id, err := e.index.Resolve(ctx, userID, name, false)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return e.fail(ctx, "delete_collection", err)
	}

	err = e.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := e.repos.Items(tx).DeleteAll(ctx, userID, id); err != nil {
			return err
		}
		_, err := e.repos.Collections(tx).DeleteByName(ctx, userID, name)
		return err
	})
	e.index.Invalidate(ctx, userID)
	if err != nil {
		return e.fail(ctx, "delete_collection", err)
	}
	return nil
}

// MaxModified returns the newest item timestamp of the collection; ok is
// false when it holds no items.
func (e *Engine) MaxModified(ctx context.Context, userID int64, name string) (float64, bool, error) {
	id, err := e.index.Resolve(ctx, userID, name, true)
	if err != nil {
		return 0, false, e.fail(ctx, "max_modified", err)
	}
	m, ok, err := e.repos.Items(e.db).MaxModified(ctx, userID, id)
	if err != nil {
		return 0, false, e.fail(ctx, "max_modified", err)
	}
	return m, ok, nil
}

// CollectionTimestamps maps each collection holding items to its newest
// item timestamp.
func (e *Engine) CollectionTimestamps(ctx context.Context, userID int64) (map[string]float64, error) {
	rows, err := e.repos.Items(e.db).Timestamps(ctx, userID)
	if err != nil {
		return nil, e.fail(ctx, "collection_timestamps", err)
	}

	result := make(map[string]float64, len(rows))
	for _, ts := range rows {
		name := ts.Name
		if !ts.Named {
			var ok bool
			name, ok = e.wellKnownName(ts.CollectionID)
			if !ok {
				e.logger.Warn(ctx, "items without collection", "user", userID, "collection", ts.CollectionID)
				continue
			}
		}
		result[name] = ts.Modified
	}
	return result, nil
}

// CollectionCounts maps each collection holding items to its item count.
// The user's name cache is dropped afterwards.
func (e *Engine) CollectionCounts(ctx context.Context, userID int64) (map[string]int64, error) {
	counts, err := e.repos.Items(e.db).Counts(ctx, userID)
	if err != nil {
		return nil, e.fail(ctx, "collection_counts", err)
	}
	defer e.index.Invalidate(ctx, userID)

	result := make(map[string]int64, len(counts))
	for id, n := range counts {
		name, err := e.index.NameOf(ctx, userID, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				e.logger.Warn(ctx, "items without collection", "user", userID, "collection", id)
				continue
			}
			return nil, e.fail(ctx, "collection_counts", err)
		}
		result[name] = n
	}
	return result, nil
}

// CollectionSizes maps each collection holding items to the total size of
// its payloads in bytes. Names are read from the store, not the cache.
func (e *Engine) CollectionSizes(ctx context.Context, userID int64) (map[string]int64, error) {
	sizes, err := e.repos.Items(e.db).Sizes(ctx, userID)
	if err != nil {
		return nil, e.fail(ctx, "collection_sizes", err)
	}
	names, err := e.repos.Collections(e.db).Names(ctx, userID)
	if err != nil {
		return nil, e.fail(ctx, "collection_sizes", err)
	}

	result := make(map[string]int64, len(sizes))
	for id, n := range sizes {
		name, ok := e.wellKnownName(id)
		if !ok {
			name, ok = names[id]
		}
		if !ok {
			e.logger.Warn(ctx, "items without collection", "user", userID, "collection", id)
			continue
		}
		result[name] = n
	}
	return result, nil
}

// StorageSize is the total payload size of all the user's items in bytes.
func (e *Engine) StorageSize(ctx context.Context, userID int64) (int64, error) {
	n, err := e.repos.Items(e.db).TotalSize(ctx, userID)
	if err != nil {
		return 0, e.fail(ctx, "storage_size", err)
	}
	return n, nil
}

func (e *Engine) wellKnownName(id int64) (string, bool) {
	if !e.index.Standard() {
		return "", false
	}
	return index.WellKnownName(id)
}

func checkCollectionFields(fields []models.CollectionField) error {
	for _, f := range fields {
		if !f.Valid() {
			return fmt.Errorf("%w: collections.%s", common.ErrInvalidField, f)
		}
	}
	return nil
}

// pick keeps the requested fields of c; no fields means all of them.
func pick(c models.Collection, fields []models.CollectionField) models.Collection {
	if len(fields) == 0 {
		return c
	}
	var out models.Collection
	for _, f := range fields {
		switch f {
		case models.CollectionFieldUserID:
			out.UserID = c.UserID
		case models.CollectionFieldID:
			out.ID = c.ID
		case models.CollectionFieldName:
			out.Name = c.Name
		}
	}
	return out
}
