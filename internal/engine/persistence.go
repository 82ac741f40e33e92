package engine

import (
	"os"

	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/internal/metrics"
)

// WarmStart publishes the snapshot saved at the configured path, if any.
// It reports false without error when snapshots are disabled or no file exists.
func (e *Engine) WarmStart() (bool, error) {
	if e.snapshotPath == "" {
		return false, nil
	}
	h, err := e.store.Load(e.snapshotPath)
	if err == os.ErrNotExist {
		e.logger.Info().Str("path", e.snapshotPath).Msg("no saved snapshot, cold start")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	metrics.CatalogItems.Set(float64(len(h.Items())))
	metrics.CatalogVersion.Set(float64(h.Version()))
	e.logger.Info().Uint64("version", h.Version()).Int("items", len(h.Items())).Msg("warm start from saved snapshot")
	return true, nil
}

// SaveSnapshot writes the current snapshot to the configured path.
func (e *Engine) SaveSnapshot() error {
	if e.snapshotPath == "" {
		return errors.NewValidationError("snapshot.path", "snapshot files are disabled")
	}
	return e.store.Save(e.snapshotPath)
}
