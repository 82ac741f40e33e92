// Package indexing builds the prefix index for a catalog snapshot.
package indexing

import (
	"fmt"
	"unicode/utf8"

	"github.com/harvesthub/catalog-engine/index"
	"github.com/harvesthub/catalog-engine/internal/tokenizer"
	"github.com/harvesthub/catalog-engine/model"
)

// DefaultMinKeywordLength is the shortest name token or description word that
// gets its own key. Full names are indexed at any length.
const DefaultMinKeywordLength = 4

// Stats summarizes one index build.
type Stats struct {
	Items     int `json:"items"`
	Keys      int `json:"keys"`
	Postings  int `json:"postings"`
	Unindexed int `json:"unindexed"` // items with neither a name nor a usable keyword
}

// Service indexes items into a PrefixIndex.
type Service struct {
	prefixIndex      *index.PrefixIndex
	minKeywordLength int
}

// NewService creates an indexing Service writing into prefixIndex.
// A minKeywordLength below 1 falls back to DefaultMinKeywordLength.
func NewService(prefixIndex *index.PrefixIndex, minKeywordLength int) (*Service, error) {
	if prefixIndex == nil {
		return nil, fmt.Errorf("prefix index cannot be nil")
	}
	if minKeywordLength < 1 {
		minKeywordLength = DefaultMinKeywordLength
	}
	return &Service{prefixIndex: prefixIndex, minKeywordLength: minKeywordLength}, nil
}

// Keys returns the index keys for an item: its full lower-cased name, then name
// tokens and description keywords long enough to stand on their own.
func (s *Service) Keys(item model.Item) []string {
	keys := make([]string, 0, 8)
	seen := make(map[string]struct{}, 8)
	add := func(k string) {
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	add(tokenizer.NormalizeKey(item.Name))
	for _, token := range tokenizer.Tokenize(item.Name) {
		if utf8.RuneCountInString(token) >= s.minKeywordLength {
			add(token)
		}
	}
	for _, kw := range tokenizer.Keywords(item.Description, s.minKeywordLength) {
		add(kw)
	}
	return keys
}

// AddItem indexes a single item at the given catalog position.
func (s *Service) AddItem(item model.Item, ordinal int) int {
	keys := s.Keys(item)
	posting := index.Posting{ItemID: item.ID, Ordinal: ordinal}
	for _, key := range keys {
		s.prefixIndex.Insert(key, posting)
	}
	return len(keys)
}

// AddSnapshot indexes every item of the snapshot in catalog order.
func (s *Service) AddSnapshot(snapshot *model.Snapshot) Stats {
	var stats Stats
	if snapshot == nil {
		return stats
	}
	for i, item := range snapshot.Items {
		n := s.AddItem(item, i)
		if n == 0 {
			stats.Unindexed++
		}
		stats.Postings += n
		stats.Items++
	}
	stats.Keys = s.prefixIndex.KeyCount()
	return stats
}

// Build creates a fresh index for snapshot.
func Build(snapshot *model.Snapshot, minKeywordLength int) (*index.PrefixIndex, Stats, error) {
	idx := index.NewPrefixIndex()
	svc, err := NewService(idx, minKeywordLength)
	if err != nil {
		return nil, Stats{}, err
	}
	return idx, svc.AddSnapshot(snapshot), nil
}
