package gallery

import (
	"sort"
	"time"
)

// Item identifies one scanned image in the gallery folder.
//
// Location is the cleaned absolute path of the full-resolution file and is
// the item's identity: two items are equal iff their locations are equal.
// ThumbnailLocation and CreationTime are derived attributes.
type Item struct {
	Location          string    `json:"location"`
	ThumbnailLocation string    `json:"thumbnailLocation"`
	CreationTime      time.Time `json:"creationTime"`
}

// Equal reports whether two items identify the same file.
func (i Item) Equal(other Item) bool {
	return i.Location == other.Location
}

// sortByCreationTime sorts items ascending by creation time. The sort is
// stable so that timestamp ties keep their listing order.
func sortByCreationTime(items []Item) {
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].CreationTime.Before(items[b].CreationTime)
	})
}

// itemSet builds a location-keyed set from a list of items.
func itemSet(items []Item) map[string]Item {
	set := make(map[string]Item, len(items))
	for _, it := range items {
		set[it.Location] = it
	}
	return set
}

// containsLocation reports whether any item in the list has the given
// location.
func containsLocation(items []Item, location string) bool {
	for _, it := range items {
		if it.Location == location {
			return true
		}
	}
	return false
}
