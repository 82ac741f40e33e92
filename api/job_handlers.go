package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/model"
)

// GetJobHandler handles requests to get job status by ID
func (api *API) GetJobHandler(c *gin.Context) {
	jobID := c.Param("jobId")
	if result := ValidateID("jobId", jobID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	job, err := api.engine.GetJob(jobID)
	if err != nil {
		if errors.Is(err, internalErrors.ErrJobNotFound) {
			SendJobNotFoundError(c, jobID)
			return
		}
		SendInternalError(c, "get job", err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetJobMetricsHandler handles requests to get job performance metrics
func (api *API) GetJobMetricsHandler(c *gin.Context) {
	provider, ok := api.engine.(jobMetricsProvider)
	if !ok {
		SendNotSupportedError(c, "Job metrics")
		return
	}

	manager := provider.Jobs()
	c.JSON(http.StatusOK, gin.H{
		"metrics":          manager.GetMetrics(),
		"success_rate":     manager.GetJobSuccessRate(),
		"current_workload": manager.GetCurrentWorkload(),
	})
}

// ListJobsRequest filters GET /jobs. A zero limit returns every job.
type ListJobsRequest struct {
	Source string `form:"source"`
	Status string `form:"status"`
	Limit  int    `form:"limit" binding:"gte=0"`
}

// ListJobsHandler lists jobs, optionally filtered by ?source=, ?status= and ?limit=.
func (api *API) ListJobsHandler(c *gin.Context) {
	var req ListJobsRequest
	if result := ValidateQueryBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	status, result := ValidateJobStatus(req.Status)
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	jobList := api.engine.ListJobs(req.Source, status)
	if jobList == nil {
		jobList = []*model.Job{}
	}
	total := len(jobList)
	if req.Limit > 0 && len(jobList) > req.Limit {
		jobList = jobList[:req.Limit]
	}
	c.JSON(http.StatusOK, gin.H{
		"jobs":   jobList,
		"source": req.Source,
		"total":  total,
	})
}
