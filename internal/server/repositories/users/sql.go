package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

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

func (r *SQLRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := r.d.Rebind(`SELECT 1 FROM users WHERE id = ?`)

	var one int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

func (r *SQLRepository) Create(ctx context.Context, id int64, u models.UserUpdate, created time.Time) error {
	query := r.d.Rebind(
		`INSERT INTO users (id, username, email, password_hash, created)
		 VALUES (?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query, id,
		nullString(u.Username), nullString(u.Email), nullString(u.PasswordHash), created.Unix())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Update(ctx context.Context, id int64, u models.UserUpdate) (bool, error) {
	var (
		sets []string
		args []any
	)
	if u.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *u.Username)
	}
	if u.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *u.Email)
	}
	if u.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *u.PasswordHash)
	}
	if len(sets) == 0 {
		return r.Exists(ctx, id)
	}

	query := r.d.Rebind("UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	if n > 0 {
		return true, nil
	}
	// MySQL reports zero affected rows when the values did not change.
	return r.Exists(ctx, id)
}

func (r *SQLRepository) Get(ctx context.Context, id int64, fields []models.UserField) (*models.User, error) {
	if len(fields) == 0 {
		fields = models.AllUserFields
	}

	user := &models.User{}
	cols := make([]string, len(fields))
	dest := make([]any, len(fields))
	var (
		username, email, hash sql.NullString
		created               int64
	)
	for i, f := range fields {
		if !f.Valid() {
			return nil, fmt.Errorf("%w: users.%s", common.ErrInvalidField, f)
		}
		cols[i] = string(f)
		switch f {
		case models.UserFieldID:
			dest[i] = &user.ID
		case models.UserFieldUsername:
			dest[i] = &username
		case models.UserFieldEmail:
			dest[i] = &email
		case models.UserFieldPasswordHash:
			dest[i] = &hash
		case models.UserFieldCreatedAt:
			dest[i] = &created
		}
	}

	query := r.d.Rebind("SELECT " + strings.Join(cols, ", ") + " FROM users WHERE id = ?")
	err := r.db.QueryRowContext(ctx, query, id).Scan(dest...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Username = username.String
	user.Email = email.String
	user.PasswordHash = hash.String
	if created != 0 {
		user.CreatedAt = time.Unix(created, 0).UTC()
	}
	return user, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := r.d.Rebind(`DELETE FROM users WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
