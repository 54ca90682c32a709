package storage

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/syncstore/internal/bso"
	"github.com/dmitrijs2005/syncstore/internal/common"
	"github.com/dmitrijs2005/syncstore/internal/dbx"
	"github.com/dmitrijs2005/syncstore/internal/server/models"
	"github.com/dmitrijs2005/syncstore/internal/server/repositories/items"
)

// ItemExists returns the modified time of the item; ok is false when it
// does not exist.
func (e *Engine) ItemExists(ctx context.Context, userID int64, collection, id string) (float64, bool, error) {
	cid, err := e.index.Resolve(ctx, userID, collection, true)
	if err != nil {
		return 0, false, e.fail(ctx, "item_exists", err)
	}
	m, err := e.repos.Items(e.db).Modified(ctx, userID, cid, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, false, nil
		}
		return 0, false, e.fail(ctx, "item_exists", err)
	}
	return m, true, nil
}

// GetItem reads the requested fields of one item; all fields when none are
// given.
func (e *Engine) GetItem(ctx context.Context, userID int64, collection, id string, fields ...models.Field) (bso.Record, bool, error) {
	cid, err := e.index.Resolve(ctx, userID, collection, true)
	if err != nil {
		return bso.Record{}, false, e.fail(ctx, "get_item", err)
	}
	it, err := e.repos.Items(e.db).Get(ctx, userID, cid, id, fields)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return bso.Record{}, false, nil
		}
		return bso.Record{}, false, e.fail(ctx, "get_item", err)
	}
	return it.BSO(collection), true, nil
}

// GetItems returns the items of a collection matched by q.
func (e *Engine) GetItems(ctx context.Context, userID int64, collection string, q models.ItemQuery) ([]bso.Record, error) {
	cid, err := e.index.Resolve(ctx, userID, collection, true)
	if err != nil {
		return nil, e.fail(ctx, "get_items", err)
	}
	list, err := e.repos.Items(e.db).Select(ctx, userID, cid, q)
	if err != nil {
		return nil, e.fail(ctx, "get_items", err)
	}
	records := make([]bso.Record, len(list))
	for i, it := range list {
		records[i] = it.BSO(collection)
	}
	return records, nil
}

// SetItem creates or partially updates one item and returns the modified
// time stored with it. A missing modified is stamped with the current time
// when a payload is written; an item written without either keeps its old
// timestamp, or gets the current time if it is new.
func (e *Engine) SetItem(ctx context.Context, userID int64, collection, id string, rec bso.Record) (float64, error) {
	cid, err := e.index.Resolve(ctx, userID, collection, true)
	if err != nil {
		return 0, e.fail(ctx, "set_item", err)
	}

	item := models.ItemFromBSO(rec)
	item.ID = id
	w := stamp(item, e.now())
	if err := e.repos.Items(e.db).Upsert(ctx, userID, cid, w); err != nil {
		return 0, e.fail(ctx, "set_item", err)
	}
	if !w.StampOnInsert {
		return *w.Item.Modified, nil
	}

	m, err := e.repos.Items(e.db).Modified(ctx, userID, cid, id)
	if err != nil {
		return 0, e.fail(ctx, "set_item", err)
	}
	return m, nil
}

// SetItems writes a batch of items and returns how many were written.
// Records without an id are skipped. On dialects with bulk upsert the batch
// is committed atomically; otherwise items are written one at a time and a
// failure leaves the earlier ones in place.
func (e *Engine) SetItems(ctx context.Context, userID int64, collection string, recs []bso.Record) (int, error) {
	cid, err := e.index.Resolve(ctx, userID, collection, true)
	if err != nil {
		return 0, e.fail(ctx, "set_items", err)
	}

	now := e.now()
	ws := make([]items.Write, 0, len(recs))
	for _, rec := range recs {
		if rec.ID == "" {
			continue
		}
		ws = append(ws, stamp(models.ItemFromBSO(rec), now))
	}
	if len(ws) == 0 {
		return 0, nil
	}

	if !e.repos.Dialect().BulkUpsert() {
		n, err := e.repos.Items(e.db).UpsertBatch(ctx, userID, cid, ws)
		if err != nil {
			return n, e.fail(ctx, "set_items", err)
		}
		return n, nil
	}

	var n int
	err = e.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		n, err = e.repos.Items(tx).UpsertBatch(ctx, userID, cid, ws)
		return err
	})
	if err != nil {
		return 0, e.fail(ctx, "set_items", err)
	}
	return n, nil
}

// DeleteItem reports whether exactly one item was removed.
func (e *Engine) DeleteItem(ctx context.Context, userID int64, collection, id string) (bool, error) {
	cid, err := e.index.Resolve(ctx, userID, collection, false)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, e.fail(ctx, "delete_item", err)
	}
	ok, err := e.repos.Items(e.db).Delete(ctx, userID, cid, id)
	if err != nil {
		return false, e.fail(ctx, "delete_item", err)
	}
	return ok, nil
}

// DeleteItems removes the items matched by q and reports whether any were
// removed. With q.IDs nil the filters alone select the items.
func (e *Engine) DeleteItems(ctx context.Context, userID int64, collection string, q models.ItemQuery) (bool, error) {
	cid, err := e.index.Resolve(ctx, userID, collection, false)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, e.fail(ctx, "delete_items", err)
	}
	n, err := e.repos.Items(e.db).DeleteWhere(ctx, userID, cid, q)
	if err != nil {
		return false, e.fail(ctx, "delete_items", err)
	}
	return n > 0, nil
}

// PurgeExpired removes the items of every user whose ttl has run out.
func (e *Engine) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := e.repos.Items(e.db).PurgeExpired(ctx, e.now())
	if err != nil {
		return 0, e.fail(ctx, "purge_expired", err)
	}
	if n > 0 {
		e.logger.Info(ctx, "expired items purged", "count", n)
	}
	return n, nil
}

// stamp fills in a missing modified time. Without a payload the stamp only
// applies if the item is created.
func stamp(item models.Item, now float64) items.Write {
	if item.Modified != nil {
		return items.Write{Item: item}
	}
	item.Modified = &now
	return items.Write{Item: item, StampOnInsert: item.Payload == nil}
}
