package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harvesthub/catalog-engine/config"
	"github.com/harvesthub/catalog-engine/internal/jobs"
	"github.com/harvesthub/catalog-engine/services"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 4 << 20

// settingsManager is implemented by engines whose tunables can change at runtime.
type settingsManager interface {
	Settings() config.EngineSettings
	UpdateSettings(config.EngineSettings) (bool, error)
}

// snapshotSaver is implemented by engines that persist snapshots.
type snapshotSaver interface {
	SaveSnapshotAsync() (string, error)
}

// jobMetricsProvider exposes the job manager for metrics.
type jobMetricsProvider interface {
	Jobs() *jobs.Manager
}

// API holds dependencies for API handlers, primarily the catalog engine.
type API struct {
	engine  services.CatalogEngine
	service string
	started time.Time
}

// NewAPI creates a new API handler structure.
func NewAPI(engine services.CatalogEngine) *API {
	return &API{
		engine:  engine,
		service: "catalog-engine",
		started: time.Now(),
	}
}

// SetupRoutes defines all the API routes for the catalog engine.
func SetupRoutes(router *gin.Engine, engine services.CatalogEngine) {
	apiHandler := NewAPI(engine)

	router.Use(RequestIDMiddleware(), AccessLogMiddleware(), CORSMiddleware(), RequestSizeLimitMiddleware(maxRequestBody))

	router.GET("/health", apiHandler.HealthCheckHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/analytics", apiHandler.GetAnalyticsHandler)

	catalogRoutes := router.Group("/catalog")
	{
		catalogRoutes.GET("", apiHandler.GetCatalogStatsHandler)
		catalogRoutes.POST("/refresh", apiHandler.RefreshCatalogHandler)
		catalogRoutes.POST("/snapshot", apiHandler.SaveSnapshotHandler)
	}

	router.GET("/settings", apiHandler.GetSettingsHandler)
	router.PUT("/settings", apiHandler.UpdateSettingsHandler)

	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("", apiHandler.ListJobsHandler)              // List jobs, optionally filtered
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler) // Job performance metrics
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)         // Job status by ID
	}

	queryRoutes := router.Group("/query")
	{
		queryRoutes.POST("/search", apiHandler.SearchHandler)
		queryRoutes.POST("/rank", apiHandler.RankHandler)
		queryRoutes.POST("/top", apiHandler.TopHandler)
		queryRoutes.POST("/price-range", apiHandler.PriceRangeHandler)
		queryRoutes.POST("/nearest", apiHandler.NearestHandler)
		queryRoutes.POST("/reachable", apiHandler.ReachableHandler)
		queryRoutes.POST("/budget", apiHandler.BudgetHandler)
		queryRoutes.POST("/duration", apiHandler.DurationHandler)
		queryRoutes.POST("/schedule", apiHandler.ScheduleHandler)
		queryRoutes.POST("/conflicts", apiHandler.ConflictsHandler)
		queryRoutes.POST("/slot", apiHandler.SlotHandler)
	}
}
