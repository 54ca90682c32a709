package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/syncstore/internal/server/models"
)

type Repository interface {
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, id int64, u models.UserUpdate, created time.Time) error
	// Update writes only the fields set in u and reports whether a row matched.
	Update(ctx context.Context, id int64, u models.UserUpdate) (bool, error)
	// Get returns common.ErrorNotFound when the user does not exist.
	Get(ctx context.Context, id int64, fields []models.UserField) (*models.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
