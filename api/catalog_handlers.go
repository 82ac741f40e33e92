package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harvesthub/catalog-engine/config"
)

// GetCatalogStatsHandler describes the snapshot currently served.
func (api *API) GetCatalogStatsHandler(c *gin.Context) {
	stats, err := api.engine.CatalogStats()
	if err != nil {
		SendEngineError(c, "read catalog stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RefreshCatalogHandler starts a catalog reload from the source.
// Response: 202 with the job ID to poll.
func (api *API) RefreshCatalogHandler(c *gin.Context) {
	jobID, err := api.engine.RefreshAsync()
	if err != nil {
		SendJobExecutionError(c, "refresh catalog", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Catalog refresh started",
		"job_id":  jobID,
		"job_url": "/jobs/" + jobID,
	})
}

// SaveSnapshotHandler starts writing the current snapshot to disk.
func (api *API) SaveSnapshotHandler(c *gin.Context) {
	saver, ok := api.engine.(snapshotSaver)
	if !ok {
		SendNotSupportedError(c, "Snapshot persistence")
		return
	}

	jobID, err := saver.SaveSnapshotAsync()
	if err != nil {
		SendEngineError(c, "save snapshot", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Snapshot save started",
		"job_id":  jobID,
		"job_url": "/jobs/" + jobID,
	})
}

// GetSettingsHandler returns the engine settings in effect.
func (api *API) GetSettingsHandler(c *gin.Context) {
	manager, ok := api.engine.(settingsManager)
	if !ok {
		SendNotSupportedError(c, "Settings management")
		return
	}
	c.JSON(http.StatusOK, manager.Settings())
}

// UpdateSettingsHandler replaces the engine settings. Omitted fields take
// their defaults. Changing min_keyword_length reindexes the catalog.
// Request Body: config.EngineSettings
func (api *API) UpdateSettingsHandler(c *gin.Context) {
	manager, ok := api.engine.(settingsManager)
	if !ok {
		SendNotSupportedError(c, "Settings management")
		return
	}

	var settings config.EngineSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		SendInvalidJSONError(c, err)
		return
	}
	if result := ValidateEngineSettings(&settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	reindexed, err := manager.UpdateSettings(settings)
	if err != nil {
		SendEngineError(c, "update settings", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "updated",
		"reindexed": reindexed,
		"settings":  manager.Settings(),
	})
}
