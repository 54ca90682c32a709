package items

import (
	"context"

	"github.com/dmitrijs2005/syncstore/internal/server/models"
)

// Write is one item to upsert. Item.Modified must be set. StampOnInsert
// marks a Modified value generated by the store rather than supplied by the
// client: it is used when the row is created and never overwrites the
// timestamp of an existing row.
type Write struct {
	Item          models.Item
	StampOnInsert bool
}

// Timestamp is the newest modified time of one collection. Named is false
// when the items have no matching collections row.
type Timestamp struct {
	CollectionID int64
	Name         string
	Named        bool
	Modified     float64
}

// Repository reads and writes the wbo table. Item timestamps cross this
// interface as float seconds; the stored integer form stays inside.
type Repository interface {
	// Modified returns common.ErrorNotFound when the item does not exist.
	Modified(ctx context.Context, userID, collectionID int64, id string) (float64, error)
	// Get returns common.ErrorNotFound when the item does not exist.
	Get(ctx context.Context, userID, collectionID int64, id string, fields []models.Field) (*models.Item, error)
	Select(ctx context.Context, userID, collectionID int64, q models.ItemQuery) ([]models.Item, error)

	Upsert(ctx context.Context, userID, collectionID int64, w Write) error
	// UpsertBatch writes ws and returns how many items were written. Absent
	// optional attributes keep their stored values.
	UpsertBatch(ctx context.Context, userID, collectionID int64, ws []Write) (int, error)

	Delete(ctx context.Context, userID, collectionID int64, id string) (bool, error)
	DeleteWhere(ctx context.Context, userID, collectionID int64, q models.ItemQuery) (int64, error)
	DeleteAll(ctx context.Context, userID, collectionID int64) (int64, error)
	DeleteUser(ctx context.Context, userID int64) (int64, error)

	MaxModified(ctx context.Context, userID, collectionID int64) (float64, bool, error)
	Timestamps(ctx context.Context, userID int64) ([]Timestamp, error)
	Counts(ctx context.Context, userID int64) (map[int64]int64, error)
	Sizes(ctx context.Context, userID int64) (map[int64]int64, error)
	TotalSize(ctx context.Context, userID int64) (int64, error)

	// PurgeExpired deletes items of every user whose ttl ran out before now.
	PurgeExpired(ctx context.Context, now float64) (int64, error)
}
