package model

import (
	"time"
)

// Snapshot is an ordered, immutable view of the catalog at one point in time.
// Catalog order (the position of an item in Items) is used as the tie-breaker by
// every ranking operation.
type Snapshot struct {
	Version    uint64    `json:"version" msgpack:"version"`
	CapturedAt time.Time `json:"captured_at" msgpack:"captured_at"`
	Items      []Item    `json:"items" msgpack:"items"`
}

// Len returns the number of items in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Items)
}

// FindByID returns the item with the given ID and its catalog position.
func (s *Snapshot) FindByID(id string) (Item, int, bool) {
	if s == nil {
		return Item{}, -1, false
	}
	for i, item := range s.Items {
		if item.ID == id {
			return item, i, true
		}
	}
	return Item{}, -1, false
}
