package models

// Sort is the result order of an item query.
type Sort string

const (
	// SortIndex orders by sortindex, highest first. It is the default.
	SortIndex  Sort = "index"
	SortOldest Sort = "oldest"
	SortNewest Sort = "newest"
)

// ParseSort maps a client-supplied sort name to a Sort; anything that is not
// "oldest" or "newest" means index order.
func ParseSort(s string) Sort {
	switch Sort(s) {
	case SortOldest, SortNewest:
		return Sort(s)
	}
	return SortIndex
}

// ItemQuery selects items within one collection.
//
// Fields limits the returned columns (all when empty; id is always read).
// IDs, when non-nil, restricts the query to those item ids; it is used by
// deletes. Limit and Offset apply only when greater than zero.
type ItemQuery struct {
	Fields  []Field
	IDs     []string
	Filters []Filter
	Limit   int
	Offset  int
	Sort    Sort
}
