package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheckHandler reports liveness and whether a catalog is loaded.
func (api *API) HealthCheckHandler(c *gin.Context) {
	status := "healthy"
	catalogVersion := uint64(0)
	if stats, err := api.engine.CatalogStats(); err == nil {
		catalogVersion = stats.Version
	} else {
		status = "starting"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          status,
		"service":         api.service,
		"catalog_version": catalogVersion,
		"uptime_seconds":  int64(time.Since(api.started).Seconds()),
		"timestamp":       fmt.Sprintf("%d", time.Now().Unix()),
	})
}

// GetAnalyticsHandler returns query analytics and catalog statistics.
func (api *API) GetAnalyticsHandler(c *gin.Context) {
	dashboard, err := api.engine.Dashboard()
	if err != nil {
		SendInternalError(c, "retrieve analytics data", err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}
