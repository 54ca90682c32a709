package storage

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/syncstore/internal/bso"
	"github.com/dmitrijs2005/syncstore/internal/common"
	"github.com/dmitrijs2005/syncstore/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCollection_ReadCreates(t *testing.T) {
	e, _, _ := newEngine(t, true)
	ctx := context.Background()

	ok, err := e.CollectionExists(ctx, 1, "bookmarks")
	require.NoError(t, err)
	assert.False(t, ok)

	c, err := e.GetCollection(ctx, 1, "bookmarks")
	require.NoError(t, err)
	assert.Equal(t, models.Collection{UserID: 1, ID: 5, Name: "bookmarks"}, *c)

	ok, err = e.CollectionExists(ctx, 1, "bookmarks")
	require.NoError(t, err)
	assert.True(t, ok)

	c, err = e.GetCollection(ctx, 1, "bookmarks", models.CollectionFieldID)
	require.NoError(t, err)
	assert.Equal(t, models.Collection{ID: 5}, *c)

	_, err = e.GetCollection(ctx, 1, "bookmarks", "modified")
	assert.ErrorIs(t, err, common.ErrInvalidField)
}

func TestCollectionExists_WellKnown(t *testing.T) {
	e, _, _ := newEngine(t, true)
	ok, err := e.CollectionExists(context.Background(), 1, "history")
	require.NoError(t, err)
	assert.True(t, ok)

	custom, _, _ := newEngine(t, false)
	ok, err = custom.CollectionExists(context.Background(), 1, "history")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateCollection_IsStable(t *testing.T) {
	e, _, _ := newEngine(t, false)
	ctx := context.Background()

	first, err := e.CreateCollection(ctx, 1, "history")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := e.CreateCollection(ctx, 1, "tabs")
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)

	again, err := e.CreateCollection(ctx, 1, "history")
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestListCollections_WellKnownFirst(t *testing.T) {
	e, _, _ := newEngine(t, true)
	ctx := context.Background()

	_, err := e.CreateCollection(ctx, 1, "tabs")
	require.NoError(t, err)
	_, err = e.CreateCollection(ctx, 1, "bookmarks")
	require.NoError(t, err)
	_, err = e.CreateCollection(ctx, 2, "other-user")
	require.NoError(t, err)

	names, err := e.ListCollectionNames(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"client", "crypto", "forms", "history", "tabs", "bookmarks"}, names)

	list, err := e.ListCollections(ctx, 1, models.CollectionFieldID, models.CollectionFieldUserID)
	require.NoError(t, err)
	require.Len(t, list, 6)
	assert.Equal(t, models.Collection{UserID: 1, ID: 1}, list[0])
	assert.Equal(t, models.Collection{UserID: 1, ID: 6}, list[5])

	custom, _, _ := newEngine(t, false)
	names, err = custom.ListCollectionNames(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDeleteCollection(t *testing.T) {
	e, _, _ := newEngine(t, true)
	ctx := context.Background()

	require.NoError(t, e.DeleteCollection(ctx, 1, "never-seen"))
	ok, err := e.CollectionExists(ctx, 1, "never-seen")
	require.NoError(t, err)
	assert.False(t, ok)

	seedItems(t, e, 1, "bookmarks", 3)
	seedItems(t, e, 1, "history", 2)

	require.NoError(t, e.DeleteCollection(ctx, 1, "bookmarks"))
	ok, err = e.CollectionExists(ctx, 1, "bookmarks")
	require.NoError(t, err)
	assert.False(t, ok)

	counts, err := e.CollectionCounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"history": 2}, counts)

	// well-known collections only lose their items
	require.NoError(t, e.DeleteCollection(ctx, 1, "history"))
	ok, err = e.CollectionExists(ctx, 1, "history")
	require.NoError(t, err)
	assert.True(t, ok)
	list, err := e.GetItems(ctx, 1, "history", models.ItemQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)

	// a recreated collection starts empty
	c, err := e.GetCollection(ctx, 1, "bookmarks")
	require.NoError(t, err)
	list, err = e.GetItems(ctx, 1, c.Name, models.ItemQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMaxModified(t *testing.T) {
	e, _, _ := newEngine(t, true)
	ctx := context.Background()

	_, ok, err := e.MaxModified(ctx, 1, "bookmarks")
	require.NoError(t, err)
	assert.False(t, ok)

	seedItems(t, e, 1, "bookmarks", 3)
	m, ok, err := e.MaxModified(ctx, 1, "bookmarks")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30.0, m)
}

func TestCollectionAggregates(t *testing.T) {
	e, db, _ := newEngine(t, true)
	ctx := context.Background()

	seedItems(t, e, 1, "bookmarks", 3)
	seedItems(t, e, 1, "history", 2)
	seedItems(t, e, 2, "bookmarks", 1)
	// items left behind by a collection row that no longer exists
	_, err := db.ExecContext(ctx,
		`INSERT INTO wbo (username, collection, id, modified, payload, payload_size) VALUES (1, 99, 'x', 100, 'abc', 3)`)
	require.NoError(t, err)

	ts, err := e.CollectionTimestamps(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"bookmarks": 30, "history": 20}, ts)

	counts, err := e.CollectionCounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"bookmarks": 3, "history": 2}, counts)

	sizes, err := e.CollectionSizes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"bookmarks": 18, "history": 12}, sizes)

	total, err := e.StorageSize(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(33), total)
}

func TestCollectionCounts_DropsNameCache(t *testing.T) {
	e, db, _ := newEngine(t, true)
	ctx := context.Background()

	_, err := e.SetItem(ctx, 1, "bookmarks", "a", mustValidate(t, bso.Raw{"payload": "x"}))
	require.NoError(t, err)

	counts, err := e.CollectionCounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"bookmarks": 1}, counts)

	_, err = db.ExecContext(ctx, `UPDATE collections SET name = 'renamed' WHERE userid = 1`)
	require.NoError(t, err)

	counts, err = e.CollectionCounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"renamed": 1}, counts)
}
