package items

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/syncstore/internal/common"
	"github.com/dmitrijs2005/syncstore/internal/server/models"
	"github.com/dmitrijs2005/syncstore/internal/timex"
)

// selectFields validates fields and puts id first. An empty list selects
// every column.
func selectFields(fields []models.Field) ([]models.Field, error) {
	if len(fields) == 0 {
		return models.AllFields, nil
	}
	out := []models.Field{models.FieldID}
	seen := map[models.Field]bool{models.FieldID: true}
	for _, f := range fields {
		if !f.Valid() {
			return nil, fmt.Errorf("%w: wbo.%s", common.ErrInvalidField, f)
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

func columnList(fields []models.Field) string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = string(f)
	}
	return strings.Join(cols, ", ")
}

// row holds scan targets for a selected column set.
type row struct {
	fields []models.Field

	id            string
	parentID      sql.NullString
	predecessorID sql.NullString
	sortIndex     sql.NullInt64
	modified      sql.NullInt64
	payload       sql.NullString
	payloadSize   sql.NullInt64
	ttl           sql.NullInt64
}

func (r *row) dest() []any {
	dest := make([]any, len(r.fields))
	for i, f := range r.fields {
		switch f {
		case models.FieldID:
			dest[i] = &r.id
		case models.FieldParentID:
			dest[i] = &r.parentID
		case models.FieldPredecessorID:
			dest[i] = &r.predecessorID
		case models.FieldSortIndex:
			dest[i] = &r.sortIndex
		case models.FieldModified:
			dest[i] = &r.modified
		case models.FieldPayload:
			dest[i] = &r.payload
		case models.FieldPayloadSize:
			dest[i] = &r.payloadSize
		case models.FieldTTL:
			dest[i] = &r.ttl
		}
	}
	return dest
}

func (r *row) item() models.Item {
	it := models.Item{
		ID:            r.id,
		ParentID:      stringPtr(r.parentID),
		PredecessorID: stringPtr(r.predecessorID),
		SortIndex:     int64Ptr(r.sortIndex),
		Payload:       stringPtr(r.payload),
		PayloadSize:   int64Ptr(r.payloadSize),
		TTL:           int64Ptr(r.ttl),
	}
	if r.modified.Valid {
		m := timex.Decode(r.modified.Int64)
		it.Modified = &m
	}
	return it
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// value returns the bind value of f in it, or nil when absent.
func value(it models.Item, f models.Field) any {
	switch f {
	case models.FieldID:
		return it.ID
	case models.FieldParentID:
		return deref(it.ParentID)
	case models.FieldPredecessorID:
		return deref(it.PredecessorID)
	case models.FieldSortIndex:
		return deref(it.SortIndex)
	case models.FieldModified:
		if it.Modified == nil {
			return nil
		}
		return timex.Encode(*it.Modified)
	case models.FieldPayload:
		return deref(it.Payload)
	case models.FieldPayloadSize:
		return deref(it.PayloadSize)
	case models.FieldTTL:
		return deref(it.TTL)
	}
	return nil
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
