package index

// Posting references one catalog item stored under an index key.
// Ordinal is the item's position in the snapshot it was indexed from and
// gives query results a stable, insertion-consistent order.
type Posting struct {
	ItemID  string
	Ordinal int
}

// PostingList is the ordered list of postings stored under a single key.
// Postings are appended in insertion order and never reordered.
type PostingList []Posting

// contains reports whether the list already references itemID.
func (pl PostingList) contains(itemID string) bool {
	for _, p := range pl {
		if p.ItemID == itemID {
			return true
		}
	}
	return false
}
