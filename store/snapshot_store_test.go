package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/model"
)

func items() []model.Item {
	return []model.Item{
		{ID: "1", Name: "Combine X", PricePerDay: 500, Rating: model.Float64Ptr(4.5), Location: &model.GeoPoint{Latitude: 10, Longitude: 20}},
		{ID: "2", Name: "Combine Y", PricePerDay: 300, Rating: model.Float64Ptr(4.8)},
		{ID: "3", Name: "Tractor Z", PricePerDay: 400},
	}
}

func TestSnapshotStore_EmptyHasNoSnapshot(t *testing.T) {
	s := NewSnapshotStore(4)
	_, err := s.Current()
	assert.True(t, errors.Is(err, apperrors.ErrNoSnapshot))
	assert.Zero(t, s.Version())
}

func TestSnapshotStore_ReplaceBumpsVersion(t *testing.T) {
	s := NewSnapshotStore(4)
	input := items()

	h1 := s.Replace(input, time.Time{})
	assert.Equal(t, uint64(1), h1.Version())
	assert.False(t, h1.Snapshot().CapturedAt.IsZero())

	input[0].Name = "mutated"
	assert.Equal(t, "Combine X", h1.Items()[0].Name, "the store keeps its own copy")

	h2 := s.Replace(nil, time.Now())
	assert.Equal(t, uint64(2), h2.Version())
	assert.NotNil(t, h2.Items())
	assert.Empty(t, h2.Items())

	current, err := s.Current()
	require.NoError(t, err)
	assert.Same(t, h2, current)
	assert.Equal(t, "Combine X", h1.Items()[0].Name, "old handles stay valid after a swap")
}

func TestHandle_LazyIndex(t *testing.T) {
	s := NewSnapshotStore(4)
	h := s.Replace(items(), time.Now())

	_, _, built := h.IndexStats()
	assert.False(t, built)

	var wg sync.WaitGroup
	results := make([]interface{}, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = h.Index()
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Same(t, results[0], r, "the index is built once per handle")
	}

	stats, _, built := h.IndexStats()
	assert.True(t, built)
	assert.Equal(t, 3, stats.Items)
	assert.Len(t, h.Index().QueryPrefix("comb", 0), 2)
}

func TestHandle_Item(t *testing.T) {
	h := NewSnapshotStore(4).Replace(items(), time.Now())

	item, ordinal, err := h.Item("2")
	require.NoError(t, err)
	assert.Equal(t, "Combine Y", item.Name)
	assert.Equal(t, 1, ordinal)

	_, _, err = h.Item("nope")
	assert.True(t, errors.Is(err, apperrors.ErrItemNotFound))
}

func TestSnapshotStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", "catalog.gob")

	src := NewSnapshotStore(4)
	src.Replace(items(), time.Now())
	src.Replace(items(), time.Now())
	require.NoError(t, src.Save(path))

	dst := NewSnapshotStore(4)
	h, err := dst.Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), h.Version())
	require.Len(t, h.Items(), 3)
	assert.Equal(t, 4.5, *h.Items()[0].Rating)
	assert.Equal(t, 20.0, h.Items()[0].Location.Longitude)
	assert.Nil(t, h.Items()[2].Rating)

	_, err = dst.Load(path)
	assert.Error(t, err, "restoring an equal version is refused")

	next := dst.Replace(items(), time.Now())
	assert.Equal(t, uint64(3), next.Version(), "versions continue from the restored snapshot")
}

func TestSnapshotStore_LoadMissingFile(t *testing.T) {
	_, err := NewSnapshotStore(4).Load(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Equal(t, os.ErrNotExist, err)

	err = NewSnapshotStore(4).Save(filepath.Join(t.TempDir(), "x.gob"))
	assert.True(t, errors.Is(err, apperrors.ErrNoSnapshot))
}

func TestSnapshotStore_Reindex(t *testing.T) {
	s := NewSnapshotStore(4)
	assert.Nil(t, s.Reindex(3), "nothing to reindex before the first publish")

	s = NewSnapshotStore(4)
	before := s.Replace([]model.Item{{ID: "1", Name: "Baler B", Description: "red hay baler"}}, time.Now())
	assert.Empty(t, before.Index().QueryPrefix("red", 0))

	after := s.Reindex(3)
	require.NotNil(t, after)
	assert.Equal(t, before.Version(), after.Version())
	assert.NotSame(t, before, after)
	assert.Len(t, after.Index().QueryPrefix("red", 0), 1)
	assert.Empty(t, before.Index().QueryPrefix("red", 0), "existing handles keep their index")

	next := s.Replace(before.Items(), time.Now())
	assert.Len(t, next.Index().QueryPrefix("red", 0), 1, "later snapshots use the new length")
}
