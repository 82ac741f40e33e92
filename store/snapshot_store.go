// Package store publishes catalog snapshots to concurrent readers.
//
// Each published snapshot is wrapped in a Handle. Readers load the current
// handle once and keep it for the whole query, so a refresh that swaps in a
// new handle never changes the data under a running query.
package store

import (
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harvesthub/catalog-engine/index"
	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/internal/indexing"
	"github.com/harvesthub/catalog-engine/internal/logging"
	"github.com/harvesthub/catalog-engine/internal/persistence"
	"github.com/harvesthub/catalog-engine/model"
)

// Handle is one published snapshot plus its lazily built prefix index.
type Handle struct {
	snapshot         *model.Snapshot
	minKeywordLength int
	publishedAt      time.Time

	once       sync.Once
	index      *index.PrefixIndex
	indexStats indexing.Stats
	indexTook  time.Duration
	built      atomic.Bool
}

func newHandle(snapshot *model.Snapshot, minKeywordLength int) *Handle {
	return &Handle{snapshot: snapshot, minKeywordLength: minKeywordLength, publishedAt: time.Now()}
}

// Snapshot returns the snapshot. Callers must not modify it.
func (h *Handle) Snapshot() *model.Snapshot { return h.snapshot }

// Version returns the snapshot version.
func (h *Handle) Version() uint64 { return h.snapshot.Version }

// Items returns the catalog in catalog order. Callers must not modify it.
func (h *Handle) Items() []model.Item { return h.snapshot.Items }

func (h *Handle) PublishedAt() time.Time { return h.publishedAt }

// Index returns the prefix index for this snapshot, building it on first use.
// Concurrent first callers wait for a single build.
func (h *Handle) Index() *index.PrefixIndex {
	h.once.Do(func() {
		start := time.Now()
		idx, stats, err := indexing.Build(h.snapshot, h.minKeywordLength)
		if err != nil {
			idx = index.NewPrefixIndex()
		}
		h.index, h.indexStats, h.indexTook = idx, stats, time.Since(start)
		h.built.Store(true)
		logging.Debug().
			Uint64("version", h.snapshot.Version).
			Int("items", stats.Items).
			Int("keys", stats.Keys).
			Dur("took", h.indexTook).
			Msg("prefix index built")
	})
	return h.index
}

// IndexStats reports the build statistics, or false if the index has not been built yet.
func (h *Handle) IndexStats() (indexing.Stats, time.Duration, bool) {
	if !h.built.Load() {
		return indexing.Stats{}, 0, false
	}
	return h.indexStats, h.indexTook, true
}

// Item looks up an item by ID.
func (h *Handle) Item(id string) (model.Item, int, error) {
	item, ordinal, ok := h.snapshot.FindByID(id)
	if !ok {
		return model.Item{}, -1, errors.NewItemNotFoundError(id, h.snapshot.Version)
	}
	return item, ordinal, nil
}

// SnapshotStore holds the current Handle.
type SnapshotStore struct {
	current          atomic.Pointer[Handle]
	mu               sync.Mutex // serializes writers
	minKeywordLength int
}

// NewSnapshotStore creates an empty store. minKeywordLength is passed to the
// index builder of every handle.
func NewSnapshotStore(minKeywordLength int) *SnapshotStore {
	return &SnapshotStore{minKeywordLength: minKeywordLength}
}

// Current returns the published handle, or ErrNoSnapshot before the first publish.
func (s *SnapshotStore) Current() (*Handle, error) {
	h := s.current.Load()
	if h == nil {
		return nil, errors.ErrNoSnapshot
	}
	return h, nil
}

// Version returns the current version, or 0 when nothing is published.
func (s *SnapshotStore) Version() uint64 {
	if h := s.current.Load(); h != nil {
		return h.Version()
	}
	return 0
}

// Replace publishes items as a new snapshot whose version is one above the
// current one. The items slice is copied.
func (s *SnapshotStore) Replace(items []model.Item, capturedAt time.Time) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	var version uint64 = 1
	if prev := s.current.Load(); prev != nil {
		version = prev.Version() + 1
	}
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	snapshot := &model.Snapshot{Version: version, CapturedAt: capturedAt, Items: slices.Clone(items)}
	if snapshot.Items == nil {
		snapshot.Items = []model.Item{}
	}

	h := newHandle(snapshot, s.minKeywordLength)
	s.current.Store(h)
	logging.Info().Uint64("version", version).Int("items", len(snapshot.Items)).Msg("catalog snapshot published")
	return h
}

// Restore publishes a previously saved snapshot with its own version. It is
// refused when a snapshot of the same or a newer version is already published.
func (s *SnapshotStore) Restore(snapshot *model.Snapshot) (*Handle, error) {
	if snapshot == nil {
		return nil, errors.NewValidationError("snapshot", "must not be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev := s.current.Load(); prev != nil && prev.Version() >= snapshot.Version {
		return nil, fmt.Errorf("restore version %d: current version %d is not older", snapshot.Version, prev.Version())
	}
	cp := *snapshot
	cp.Items = slices.Clone(snapshot.Items)
	if cp.Items == nil {
		cp.Items = []model.Item{}
	}
	h := newHandle(&cp, s.minKeywordLength)
	s.current.Store(h)
	logging.Info().Uint64("version", cp.Version).Int("items", len(cp.Items)).Msg("catalog snapshot restored")
	return h, nil
}

// Reindex sets the keyword length for future handles and republishes the
// current snapshot, same version, with an index built under the new length.
// It returns nil when nothing is published yet.
func (s *SnapshotStore) Reindex(minKeywordLength int) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.minKeywordLength = minKeywordLength
	prev := s.current.Load()
	if prev == nil {
		return nil
	}
	h := newHandle(prev.snapshot, minKeywordLength)
	s.current.Store(h)
	logging.Info().Uint64("version", prev.Version()).Int("min_keyword_length", minKeywordLength).Msg("catalog snapshot reindexed")
	return h
}

// Save writes the current snapshot to filePath so a later process can warm start.
func (s *SnapshotStore) Save(filePath string) error {
	h, err := s.Current()
	if err != nil {
		return err
	}
	if err := persistence.SaveGob(filePath, h.Snapshot()); err != nil {
		return fmt.Errorf("save snapshot %d: %w", h.Version(), err)
	}
	logging.Info().Uint64("version", h.Version()).Str("path", filePath).Msg("catalog snapshot saved")
	return nil
}

// Load restores a snapshot written by Save. A missing file returns
// os.ErrNotExist so callers can treat it as a cold start.
func (s *SnapshotStore) Load(filePath string) (*Handle, error) {
	var snapshot model.Snapshot
	if err := persistence.LoadGob(filePath, &snapshot); err != nil {
		if err == os.ErrNotExist {
			return nil, err
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return s.Restore(&snapshot)
}
