package models

import (
	"github.com/dmitrijs2005/syncstore/internal/bso"
	"github.com/dmitrijs2005/syncstore/internal/timex"
)

// Item is a stored object (a row of the wbo table). Optional attributes are
// nil when absent or not selected. Modified is float seconds at store
// precision.
type Item struct {
	ID            string
	ParentID      *string
	PredecessorID *string
	SortIndex     *int64
	Modified      *float64
	Payload       *string
	PayloadSize   *int64
	TTL           *int64
}

// ItemFromBSO converts a validated BSO into an Item ready to be written.
// The collection field is ignored; the caller names the collection.
func ItemFromBSO(r bso.Record) Item {
	item := Item{
		ID:        r.ID,
		SortIndex: r.SortIndex,
		Payload:   r.Payload,
		TTL:       r.TTL,
	}
	if r.Modified != nil {
		m := timex.Round(*r.Modified)
		item.Modified = &m
	}
	if r.Payload != nil {
		size := r.PayloadSize
		item.PayloadSize = &size
	}
	return item
}

// BSO converts a stored item back to its wire record.
func (it Item) BSO(collection string) bso.Record {
	r := bso.Record{
		ID:         it.ID,
		Collection: collection,
		SortIndex:  it.SortIndex,
		Modified:   it.Modified,
		Payload:    it.Payload,
		TTL:        it.TTL,
	}
	if it.PayloadSize != nil {
		r.PayloadSize = *it.PayloadSize
	}
	return r
}

// Field names an item column.
type Field string

const (
	FieldID            Field = "id"
	FieldParentID      Field = "parentid"
	FieldPredecessorID Field = "predecessorid"
	FieldSortIndex     Field = "sortindex"
	FieldModified      Field = "modified"
	FieldPayload       Field = "payload"
	FieldPayloadSize   Field = "payload_size"
	FieldTTL           Field = "ttl"
)

// AllFields lists every item column in table order.
var AllFields = []Field{
	FieldID, FieldParentID, FieldPredecessorID, FieldSortIndex,
	FieldModified, FieldPayload, FieldPayloadSize, FieldTTL,
}

func (f Field) Valid() bool {
	switch f {
	case FieldID, FieldParentID, FieldPredecessorID, FieldSortIndex,
		FieldModified, FieldPayload, FieldPayloadSize, FieldTTL:
		return true
	}
	return false
}

// Identity reports whether f is part of the item key and so never updated.
func (f Field) Identity() bool {
	return f == FieldID
}
