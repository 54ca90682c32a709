package index

// Well-known collections and their fixed ids. In standard mode they exist
// for every user without a collections row.
var wellKnown = map[string]int64{
	"client":  1,
	"crypto":  2,
	"forms":   3,
	"history": 4,
}

var wellKnownNames = func() map[int64]string {
	m := make(map[int64]string, len(wellKnown))
	for name, id := range wellKnown {
		m[id] = name
	}
	return m
}()

// maxWellKnownID is the floor for custom collection ids in standard mode.
const maxWellKnownID = 4

// WellKnownID returns the fixed id of a well-known collection name.
func WellKnownID(name string) (int64, bool) {
	id, ok := wellKnown[name]
	return id, ok
}

// WellKnownName returns the name of a well-known collection id.
func WellKnownName(id int64) (string, bool) {
	name, ok := wellKnownNames[id]
	return name, ok
}

// WellKnownIDs returns the well-known ids in ascending order.
func WellKnownIDs() []int64 {
	ids := make([]int64, 0, len(wellKnownNames))
	for id := int64(1); id <= maxWellKnownID; id++ {
		if _, ok := wellKnownNames[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
