package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/harvesthub/catalog-engine/internal/metrics"
	"github.com/harvesthub/catalog-engine/internal/source"
	"github.com/harvesthub/catalog-engine/services"
)

// refreshSteps is the job progress total for a refresh: load, publish, save.
const refreshSteps = 3

// Refresh loads the catalog from the source, drops invalid items and publishes
// the rest as a new snapshot. On failure the current snapshot stays in place.
func (e *Engine) Refresh(ctx context.Context) (services.RefreshResult, error) {
	return e.refresh(ctx, nil)
}

func (e *Engine) refresh(ctx context.Context, progress func(step int, message string)) (services.RefreshResult, error) {
	if progress == nil {
		progress = func(int, string) {}
	}

	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	name := e.loader.Name()
	start := e.now()

	progress(0, "Loading catalog from "+name)
	items, err := e.loader.Load(ctx)
	if err != nil {
		metrics.RefreshesTotal.WithLabelValues(name, metrics.OutcomeError).Inc()
		e.logger.Error().Err(err).Msg("catalog refresh failed")
		return services.RefreshResult{}, fmt.Errorf("refresh catalog: %w", err)
	}

	kept, rejected := source.Sanitize(name, items)
	progress(1, fmt.Sprintf("Publishing %d items", len(kept)))
	h := e.store.Replace(kept, start)

	took := time.Since(start)
	metrics.RefreshesTotal.WithLabelValues(name, metrics.OutcomeSuccess).Inc()
	metrics.RefreshDuration.WithLabelValues(name).Observe(took.Seconds())
	metrics.CatalogItems.Set(float64(len(kept)))
	metrics.CatalogVersion.Set(float64(h.Version()))

	if e.saveOnRefresh {
		progress(2, "Saving snapshot")
		if err := e.store.Save(e.snapshotPath); err != nil {
			e.logger.Warn().Err(err).Str("path", e.snapshotPath).Msg("snapshot save after refresh failed")
		}
	}
	progress(refreshSteps, fmt.Sprintf("Published version %d", h.Version()))

	e.logger.Info().
		Uint64("version", h.Version()).
		Int("items", len(kept)).
		Int("rejected", len(rejected)).
		Dur("took", took).
		Msg("catalog refreshed")

	return services.RefreshResult{
		Source:   name,
		Version:  h.Version(),
		Loaded:   len(kept),
		Rejected: len(rejected),
		Took:     took,
	}, nil
}

// RunPeriodicRefresh refreshes every interval until ctx is done. Failures are
// logged and the previous snapshot keeps serving.
func (e *Engine) RunPeriodicRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = e.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}
