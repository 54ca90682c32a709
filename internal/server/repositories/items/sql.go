package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/syncstore/internal/common"
	"github.com/dmitrijs2005/syncstore/internal/dbx"
	"github.com/dmitrijs2005/syncstore/internal/server/dialect"
	"github.com/dmitrijs2005/syncstore/internal/server/models"
	"github.com/dmitrijs2005/syncstore/internal/timex"
)

var keyColumns = []string{"username", "collection", "id"}

type SQLRepository struct {
	db dbx.DBTX
	d  dialect.Dialect
}

func NewSQLRepository(db dbx.DBTX, d dialect.Dialect) *SQLRepository {
	return &SQLRepository{db: db, d: d}
}

func (r *SQLRepository) Modified(ctx context.Context, userID, collectionID int64, id string) (float64, error) {
	query := r.d.Rebind(`SELECT modified FROM wbo WHERE username = ? AND collection = ? AND id = ?`)

	var modified int64
	err := r.db.QueryRowContext(ctx, query, userID, collectionID, id).Scan(&modified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return timex.Decode(modified), nil
}

func (r *SQLRepository) Get(ctx context.Context, userID, collectionID int64, id string, fields []models.Field) (*models.Item, error) {
	fields, err := selectFields(fields)
	if err != nil {
		return nil, err
	}
	query := r.d.Rebind("SELECT " + columnList(fields) +
		" FROM wbo WHERE username = ? AND collection = ? AND id = ?")

	sc := &row{fields: fields}
	err = r.db.QueryRowContext(ctx, query, userID, collectionID, id).Scan(sc.dest()...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	it := sc.item()
	return &it, nil
}

func (r *SQLRepository) Select(ctx context.Context, userID, collectionID int64, q models.ItemQuery) ([]models.Item, error) {
	fields, err := selectFields(q.Fields)
	if err != nil {
		return nil, err
	}
	where, args, err := whereClause(userID, collectionID, q)
	if err != nil {
		return nil, err
	}
	query := r.d.Rebind("SELECT " + columnList(fields) + " FROM wbo WHERE " + where +
		orderBy(q.Sort) + r.d.LimitOffset(q.Limit, q.Offset))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Item
	for rows.Next() {
		sc := &row{fields: fields}
		if err := rows.Scan(sc.dest()...); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, sc.item())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) Upsert(ctx context.Context, userID, collectionID int64, w Write) error {
	if w.Item.Modified == nil {
		return fmt.Errorf("%w: modified must be set on write", common.ErrInvalidField)
	}

	cols := append([]string(nil), keyColumns...)
	args := []any{userID, collectionID, w.Item.ID}
	var update []string
	for _, f := range models.AllFields {
		if f.Identity() {
			continue
		}
		v := value(w.Item, f)
		if v == nil {
			continue
		}
		cols = append(cols, string(f))
		args = append(args, v)
		if f == models.FieldModified && w.StampOnInsert {
			continue
		}
		update = append(update, string(f))
	}

	query := r.d.Rebind("INSERT INTO wbo (" + strings.Join(cols, ", ") + ") VALUES (" +
		dialect.Placeholders(len(cols)) + ") " + r.d.Upsert("wbo", keyColumns, update, false))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpsertBatch writes a multi-row upsert when the dialect supports it. Rows
// with a store-generated timestamp go in a second statement that leaves the
// stored modified alone; callers wanting both in one commit run this inside
// a transaction. Without bulk support every item is written on its own.
func (r *SQLRepository) UpsertBatch(ctx context.Context, userID, collectionID int64, ws []Write) (int, error) {
	if !r.d.BulkUpsert() {
		for i, w := range ws {
			if err := r.Upsert(ctx, userID, collectionID, w); err != nil {
				return i, err
			}
		}
		return len(ws), nil
	}

	for _, w := range ws {
		if w.Item.Modified == nil {
			return 0, fmt.Errorf("%w: modified must be set on write", common.ErrInvalidField)
		}
	}

	var supplied, stamped []Write
	for _, w := range coalesce(ws) {
		if w.StampOnInsert {
			stamped = append(stamped, w)
		} else {
			supplied = append(supplied, w)
		}
	}
	if err := r.bulkUpsert(ctx, userID, collectionID, supplied, false); err != nil {
		return 0, err
	}
	if err := r.bulkUpsert(ctx, userID, collectionID, stamped, true); err != nil {
		return 0, err
	}
	return len(ws), nil
}

// coalesce folds writes sharing an id into one, keeping the position of the
// first. Later non-nil attributes win, except that a store-generated
// timestamp never replaces one the client supplied. A single multi-row
// upsert may not touch the same row twice.
func coalesce(ws []Write) []Write {
	out := make([]Write, 0, len(ws))
	pos := make(map[string]int, len(ws))
	for _, w := range ws {
		i, ok := pos[w.Item.ID]
		if !ok {
			pos[w.Item.ID] = len(out)
			out = append(out, w)
			continue
		}
		prev := &out[i]
		overlay(&prev.Item.ParentID, w.Item.ParentID)
		overlay(&prev.Item.PredecessorID, w.Item.PredecessorID)
		overlay(&prev.Item.SortIndex, w.Item.SortIndex)
		overlay(&prev.Item.Payload, w.Item.Payload)
		overlay(&prev.Item.PayloadSize, w.Item.PayloadSize)
		overlay(&prev.Item.TTL, w.Item.TTL)
		if !w.StampOnInsert || prev.StampOnInsert {
			prev.Item.Modified = w.Item.Modified
			prev.StampOnInsert = w.StampOnInsert
		}
	}
	return out
}

func overlay[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

func (r *SQLRepository) bulkUpsert(ctx context.Context, userID, collectionID int64, ws []Write, keepModified bool) error {
	if len(ws) == 0 {
		return nil
	}

	cols := append([]string(nil), keyColumns...)
	var update []string
	for _, f := range models.AllFields {
		if f.Identity() {
			continue
		}
		cols = append(cols, string(f))
		if f == models.FieldModified && keepModified {
			continue
		}
		update = append(update, string(f))
	}

	tuple := "(" + dialect.Placeholders(len(cols)) + ")"
	tuples := make([]string, len(ws))
	args := make([]any, 0, len(ws)*len(cols))
	for i, w := range ws {
		tuples[i] = tuple
		args = append(args, userID, collectionID)
		for _, f := range models.AllFields {
			args = append(args, value(w.Item, f))
		}
	}

	query := r.d.Rebind("INSERT INTO wbo (" + strings.Join(cols, ", ") + ") VALUES " +
		strings.Join(tuples, ", ") + " " + r.d.Upsert("wbo", keyColumns, update, true))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, userID, collectionID int64, id string) (bool, error) {
	n, err := r.exec(ctx, `DELETE FROM wbo WHERE username = ? AND collection = ? AND id = ?`,
		userID, collectionID, id)
	return n == 1, err
}

// DeleteWhere removes the items matched by q. With a limit or offset the
// matching ids are picked by a sorted subquery first.
func (r *SQLRepository) DeleteWhere(ctx context.Context, userID, collectionID int64, q models.ItemQuery) (int64, error) {
	where, args, err := whereClause(userID, collectionID, q)
	if err != nil {
		return 0, err
	}
	if q.Limit <= 0 && q.Offset <= 0 {
		return r.exec(ctx, "DELETE FROM wbo WHERE "+where, args...)
	}

	query := "DELETE FROM wbo WHERE username = ? AND collection = ? AND id IN " +
		"(SELECT id FROM (SELECT id FROM wbo WHERE " + where + orderBy(q.Sort) +
		r.d.LimitOffset(q.Limit, q.Offset) + ") AS doomed)"
	return r.exec(ctx, query, append([]any{userID, collectionID}, args...)...)
}

func (r *SQLRepository) DeleteAll(ctx context.Context, userID, collectionID int64) (int64, error) {
	return r.exec(ctx, `DELETE FROM wbo WHERE username = ? AND collection = ?`, userID, collectionID)
}

func (r *SQLRepository) DeleteUser(ctx context.Context, userID int64) (int64, error) {
	return r.exec(ctx, `DELETE FROM wbo WHERE username = ?`, userID)
}

func (r *SQLRepository) MaxModified(ctx context.Context, userID, collectionID int64) (float64, bool, error) {
	query := r.d.Rebind(`SELECT MAX(modified) FROM wbo WHERE username = ? AND collection = ?`)

	var modified sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, userID, collectionID).Scan(&modified); err != nil {
		return 0, false, fmt.Errorf("db error: %w", err)
	}
	if !modified.Valid {
		return 0, false, nil
	}
	return timex.Decode(modified.Int64), true, nil
}

func (r *SQLRepository) Timestamps(ctx context.Context, userID int64) ([]Timestamp, error) {
	query := r.d.Rebind(
		`SELECT w.collection, c.name, MAX(w.modified)
		 FROM wbo w
		 LEFT JOIN collections c ON c.userid = w.username AND c.collectionid = w.collection
		 WHERE w.username = ?
		 GROUP BY w.collection, c.name`)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []Timestamp
	for rows.Next() {
		var (
			ts       Timestamp
			name     sql.NullString
			modified int64
		)
		if err := rows.Scan(&ts.CollectionID, &name, &modified); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ts.Name, ts.Named = name.String, name.Valid
		ts.Modified = timex.Decode(modified)
		result = append(result, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) Counts(ctx context.Context, userID int64) (map[int64]int64, error) {
	return r.perCollection(ctx,
		`SELECT collection, COUNT(*) FROM wbo WHERE username = ? GROUP BY collection`, userID)
}

func (r *SQLRepository) Sizes(ctx context.Context, userID int64) (map[int64]int64, error) {
	return r.perCollection(ctx,
		`SELECT collection, COALESCE(SUM(payload_size), 0) FROM wbo WHERE username = ? GROUP BY collection`, userID)
}

func (r *SQLRepository) TotalSize(ctx context.Context, userID int64) (int64, error) {
	query := r.d.Rebind(`SELECT COALESCE(SUM(payload_size), 0) FROM wbo WHERE username = ?`)

	var total int64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return total, nil
}

func (r *SQLRepository) PurgeExpired(ctx context.Context, now float64) (int64, error) {
	query := "DELETE FROM wbo WHERE ttl IS NOT NULL AND modified + ttl * " +
		strconv.Itoa(timex.Precision) + " < ?"
	return r.exec(ctx, query, timex.Encode(now))
}

func (r *SQLRepository) perCollection(ctx context.Context, query string, userID int64) (map[int64]int64, error) {
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(query), userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]int64)
	for rows.Next() {
		var id, n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
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

func whereClause(userID, collectionID int64, q models.ItemQuery) (string, []any, error) {
	conds := []string{"username = ?", "collection = ?"}
	args := []any{userID, collectionID}

	if q.IDs != nil {
		if len(q.IDs) == 0 {
			conds = append(conds, "1 = 0")
		} else {
			conds = append(conds, "id IN ("+dialect.Placeholders(len(q.IDs))+")")
			for _, id := range q.IDs {
				args = append(args, id)
			}
		}
	}

	for _, f := range q.Filters {
		vals, err := f.Args(timex.Encode)
		if err != nil {
			return "", nil, err
		}
		if f.Op == models.OpIn {
			conds = append(conds, string(f.Field)+" IN ("+dialect.Placeholders(len(vals))+")")
		} else {
			conds = append(conds, string(f.Field)+" "+string(f.Op)+" ?")
		}
		args = append(args, vals...)
	}
	return strings.Join(conds, " AND "), args, nil
}

func orderBy(s models.Sort) string {
	switch s {
	case models.SortOldest:
		return " ORDER BY modified ASC"
	case models.SortNewest:
		return " ORDER BY modified DESC"
	}
	return " ORDER BY sortindex DESC"
}
