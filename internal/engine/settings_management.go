package engine

import (
	"github.com/harvesthub/catalog-engine/config"
	"github.com/harvesthub/catalog-engine/internal/errors"
)

// Settings returns the engine settings in effect.
func (e *Engine) Settings() config.EngineSettings {
	settings := *e.settings.Load()
	policy := settings.PopularityPolicy()
	settings.Popularity = &policy
	return settings
}

// UpdateSettings validates and swaps in new settings. Queries already running
// keep the settings they started with. When the keyword length changes the
// current snapshot is reindexed and the second result is true.
func (e *Engine) UpdateSettings(newSettings config.EngineSettings) (bool, error) {
	newSettings.ApplyDefaults()
	if problems := newSettings.Validate(); len(problems) > 0 {
		return false, errors.NewValidationError("settings", problems[0])
	}

	// Serialize with refreshes so a refresh cannot publish under the old length.
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	old := e.settings.Swap(&newSettings)
	if old.MinKeywordLength == newSettings.MinKeywordLength {
		e.logger.Info().Msg("engine settings updated")
		return false, nil
	}

	e.store.Reindex(newSettings.MinKeywordLength)
	e.logger.Info().
		Int("old_min_keyword_length", old.MinKeywordLength).
		Int("min_keyword_length", newSettings.MinKeywordLength).
		Msg("engine settings updated, catalog reindexed")
	return true, nil
}
