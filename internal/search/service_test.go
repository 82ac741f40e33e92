package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvesthub/catalog-engine/index"
	"github.com/harvesthub/catalog-engine/model"
	"github.com/harvesthub/catalog-engine/services"
	"github.com/harvesthub/catalog-engine/store"
)

func setupTestSearchService(t *testing.T) *Service {
	t.Helper()
	s := store.NewSnapshotStore(4)
	handle := s.Replace([]model.Item{
		{ID: "1", Name: "Combine X", PricePerDay: 100, Rating: model.Float64Ptr(4)},
		{ID: "2", Name: "Combine Y", PricePerDay: 50, Rating: model.Float64Ptr(5)},
		{ID: "3", Name: "Tractor Z", PricePerDay: 80, Rating: model.Float64Ptr(3), Description: "compact utility tractor"},
	}, time.Time{})

	svc, err := NewService(handle)
	require.NoError(t, err)
	return svc
}

func hitIDs(hits []services.RankedItem) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Item.ID
	}
	return ids
}

func TestSearch_Prefix(t *testing.T) {
	svc := setupTestSearchService(t)

	hits, err := svc.Search(services.PrefixQuery{Prefix: "comb", Limit: 10})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, hitIDs(hits))
	assert.InDelta(t, 4.0/9.0, hits[0].Score, 1e-9)

	hits, err = svc.Search(services.PrefixQuery{Prefix: "Combine X"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1.0, hits[0].Score, "an exact name match covers the whole name")

	hits, err = svc.Search(services.PrefixQuery{Prefix: "util"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, hitIDs(hits))
	assert.Zero(t, hits[0].Score, "a keyword match does not cover the name")
}

func TestSearch_EmptyAndAbsentPrefix(t *testing.T) {
	svc := setupTestSearchService(t)

	all, err := svc.Search(services.PrefixQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, hitIDs(all))

	limited, err := svc.Search(services.PrefixQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := svc.Search(services.PrefixQuery{Prefix: "harvester"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

type staleCatalog struct {
	idx *index.PrefixIndex
}

func (c staleCatalog) Index() *index.PrefixIndex { return c.idx }
func (c staleCatalog) Items() []model.Item       { return []model.Item{{ID: "other"}} }

func TestSearch_RejectsMismatchedIndex(t *testing.T) {
	idx := index.NewPrefixIndex()
	idx.Insert("combine", index.Posting{ItemID: "1", Ordinal: 0})

	svc, err := NewService(staleCatalog{idx: idx})
	require.NoError(t, err)

	_, err = svc.Search(services.PrefixQuery{Prefix: "comb"})
	assert.Error(t, err)

	_, err = NewService(nil)
	assert.Error(t, err)
}
