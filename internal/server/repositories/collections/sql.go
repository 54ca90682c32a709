package collections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/syncstore/internal/common"
	"github.com/dmitrijs2005/syncstore/internal/dbx"
	"github.com/dmitrijs2005/syncstore/internal/server/dialect"
	"github.com/dmitrijs2005/syncstore/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
	d  dialect.Dialect
}

func NewSQLRepository(db dbx.DBTX, d dialect.Dialect) *SQLRepository {
	return &SQLRepository{db: db, d: d}
}

func columns(fields []models.CollectionField) ([]models.CollectionField, string, error) {
	if len(fields) == 0 {
		fields = models.AllCollectionFields
	}
	cols := make([]string, len(fields))
	for i, f := range fields {
		if !f.Valid() {
			return nil, "", fmt.Errorf("%w: collections.%s", common.ErrInvalidField, f)
		}
		cols[i] = string(f)
	}
	return fields, strings.Join(cols, ", "), nil
}

func scanTargets(c *models.Collection, fields []models.CollectionField) []any {
	dest := make([]any, len(fields))
	for i, f := range fields {
		switch f {
		case models.CollectionFieldUserID:
			dest[i] = &c.UserID
		case models.CollectionFieldID:
			dest[i] = &c.ID
		case models.CollectionFieldName:
			dest[i] = &c.Name
		}
	}
	return dest
}

func (r *SQLRepository) GetByName(ctx context.Context, userID int64, name string, fields []models.CollectionField) (*models.Collection, error) {
	fields, cols, err := columns(fields)
	if err != nil {
		return nil, err
	}
	query := r.d.Rebind("SELECT " + cols + " FROM collections WHERE userid = ? AND name = ?")

	c := &models.Collection{}
	err = r.db.QueryRowContext(ctx, query, userID, name).Scan(scanTargets(c, fields)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *SQLRepository) MaxID(ctx context.Context, userID int64) (int64, error) {
	query := r.d.Rebind(`SELECT MAX(collectionid) FROM collections WHERE userid = ?`)

	var maxID sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return maxID.Int64, nil
}

// Insert returns the raw driver error on a constraint violation so callers
// can classify it with the dialect.
func (r *SQLRepository) Insert(ctx context.Context, c models.Collection) error {
	query := r.d.Rebind(`INSERT INTO collections (userid, collectionid, name) VALUES (?, ?, ?)`)

	if _, err := r.db.ExecContext(ctx, query, c.UserID, c.ID, c.Name); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) List(ctx context.Context, userID int64, fields []models.CollectionField) ([]models.Collection, error) {
	fields, cols, err := columns(fields)
	if err != nil {
		return nil, err
	}
	query := r.d.Rebind("SELECT " + cols + " FROM collections WHERE userid = ? ORDER BY collectionid")

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Collection
	for rows.Next() {
		var c models.Collection
		if err := rows.Scan(scanTargets(&c, fields)...); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) Names(ctx context.Context, userID int64) (map[int64]string, error) {
	list, err := r.List(ctx, userID, []models.CollectionField{models.CollectionFieldID, models.CollectionFieldName})
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(list))
	for _, c := range list {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (r *SQLRepository) DeleteByName(ctx context.Context, userID int64, name string) (bool, error) {
	n, err := r.exec(ctx, `DELETE FROM collections WHERE userid = ? AND name = ?`, userID, name)
	return n > 0, err
}

func (r *SQLRepository) DeleteAll(ctx context.Context, userID int64) (int64, error) {
	return r.exec(ctx, `DELETE FROM collections WHERE userid = ?`, userID)
}

func (r *SQLRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.d.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
