package search

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/harvesthub/catalog-engine/index"
	"github.com/harvesthub/catalog-engine/internal/tokenizer"
	"github.com/harvesthub/catalog-engine/model"
	"github.com/harvesthub/catalog-engine/services"
)

// Catalog is the read side of one published snapshot.
type Catalog interface {
	Index() *index.PrefixIndex
	Items() []model.Item
}

// Service answers prefix queries for a single snapshot.
type Service struct {
	catalog Catalog
}

// NewService creates a new search Service.
func NewService(catalog Catalog) (*Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	return &Service{catalog: catalog}, nil
}

// Search returns up to query.Limit items reachable from the prefix, in catalog
// order. A limit <= 0 means no limit. An unknown prefix gives an empty result.
func (s *Service) Search(query services.PrefixQuery) ([]services.RankedItem, error) {
	items := s.catalog.Items()
	postings := s.catalog.Index().QueryPrefix(query.Prefix, query.Limit)

	prefix := tokenizer.NormalizeKey(query.Prefix)
	hits := make([]services.RankedItem, 0, len(postings))
	for _, p := range postings {
		if p.Ordinal < 0 || p.Ordinal >= len(items) || items[p.Ordinal].ID != p.ItemID {
			return nil, fmt.Errorf("posting for item '%s' does not match the snapshot", p.ItemID)
		}
		item := items[p.Ordinal]
		hits = append(hits, services.RankedItem{Item: item, Score: nameCoverage(prefix, item)})
	}
	return hits, nil
}

// nameCoverage is the share of the item name covered by the prefix: 1 for an
// exact name match, 0 when the prefix matched a keyword rather than the name.
func nameCoverage(prefix string, item model.Item) float64 {
	name := tokenizer.NormalizeKey(item.Name)
	if name == "" || !strings.HasPrefix(name, prefix) {
		return 0
	}
	return float64(utf8.RuneCountInString(prefix)) / float64(utf8.RuneCountInString(name))
}
