package models

// Collection is a per-user named bucket of items.
type Collection struct {
	UserID int64
	ID     int64
	Name   string
}

// CollectionField names a selectable collections column.
type CollectionField string

const (
	CollectionFieldUserID CollectionField = "userid"
	CollectionFieldID     CollectionField = "collectionid"
	CollectionFieldName   CollectionField = "name"
)

var AllCollectionFields = []CollectionField{CollectionFieldID, CollectionFieldName, CollectionFieldUserID}

func (f CollectionField) Valid() bool {
	switch f {
	case CollectionFieldUserID, CollectionFieldID, CollectionFieldName:
		return true
	}
	return false
}
