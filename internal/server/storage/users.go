package storage

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/syncstore/internal/common"
	"github.com/dmitrijs2005/syncstore/internal/dbx"
	"github.com/dmitrijs2005/syncstore/internal/server/models"
)

func (e *Engine) UserExists(ctx context.Context, userID int64) (bool, error) {
	ok, err := e.repos.Users(e.db).Exists(ctx, userID)
	if err != nil {
		return false, e.fail(ctx, "user_exists", err)
	}
	return ok, nil
}

// CreateOrUpdateUser inserts the user when absent and otherwise writes only
// the fields set in u.
func (e *Engine) CreateOrUpdateUser(ctx context.Context, userID int64, u models.UserUpdate) error {
	repo := e.repos.Users(e.db)

	found, err := repo.Update(ctx, userID, u)
	if err != nil {
		return e.fail(ctx, "create_or_update_user", err)
	}
	if found {
		return nil
	}

	err = repo.Create(ctx, userID, u, e.clock.Now())
	if err != nil && e.repos.Dialect().IsUniqueViolation(err) {
		// created concurrently; apply our fields on top
		_, err = repo.Update(ctx, userID, u)
	}
	if err != nil {
		return e.fail(ctx, "create_or_update_user", err)
	}
	return nil
}

// GetUser reads the requested fields of a user; all fields when none are given.
func (e *Engine) GetUser(ctx context.Context, userID int64, fields ...models.UserField) (*models.User, bool, error) {
	u, err := e.repos.Users(e.db).Get(ctx, userID, fields)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, false, nil
		}
		return nil, false, e.fail(ctx, "get_user", err)
	}
	return u, true, nil
}

// DeleteUser removes the user with all collections and items in one
// transaction.
func (e *Engine) DeleteUser(ctx context.Context, userID int64) error {
	err := e.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := e.deleteStorage(ctx, tx, userID); err != nil {
			return err
		}
		// TODO: purge the user's password reset codes here once reset codes are stored.
		_, err := e.repos.Users(tx).Delete(ctx, userID)
		return err
	})
	e.index.Invalidate(ctx, userID)
	if err != nil {
		return e.fail(ctx, "delete_user", err)
	}
	return nil
}

// DeleteStorage removes every collection and item of the user but keeps the
// user record.
func (e *Engine) DeleteStorage(ctx context.Context, userID int64) error {
	err := e.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return e.deleteStorage(ctx, tx, userID)
	})
	e.index.Invalidate(ctx, userID)
	if err != nil {
		return e.fail(ctx, "delete_storage", err)
	}
	return nil
}

func (e *Engine) deleteStorage(ctx context.Context, tx dbx.DBTX, userID int64) error {
	if _, err := e.repos.Items(tx).DeleteUser(ctx, userID); err != nil {
		return err
	}
	_, err := e.repos.Collections(tx).DeleteAll(ctx, userID)
	return err
}
