package collections

import (
	"context"

	"github.com/dmitrijs2005/syncstore/internal/server/models"
)

type Repository interface {
	// GetByName returns common.ErrorNotFound when the user has no collection
	// with that name.
	GetByName(ctx context.Context, userID int64, name string, fields []models.CollectionField) (*models.Collection, error)
	// MaxID is the highest collection id allocated to the user, 0 if none.
	MaxID(ctx context.Context, userID int64) (int64, error)
	Insert(ctx context.Context, c models.Collection) error
	List(ctx context.Context, userID int64, fields []models.CollectionField) ([]models.Collection, error)
	Names(ctx context.Context, userID int64) (map[int64]string, error)
	DeleteByName(ctx context.Context, userID int64, name string) (bool, error)
	DeleteAll(ctx context.Context, userID int64) (int64, error)
}
