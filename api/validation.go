// Package api provides the HTTP interface to the catalog engine.
package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harvesthub/catalog-engine/config"
	"github.com/harvesthub/catalog-engine/model"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateID validates an item or job ID path parameter
func ValidateID(field, id string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if id == "" {
		result.AddError(field, "ID is required")
		return result
	}

	if strings.TrimSpace(id) != id {
		result.AddError(field, "ID cannot have leading or trailing whitespace")
	}

	return result
}

var knownJobStatuses = map[model.JobStatus]struct{}{
	model.JobStatusPending:   {},
	model.JobStatusRunning:   {},
	model.JobStatusCompleted: {},
	model.JobStatusFailed:    {},
	model.JobStatusCancelled: {},
}

// ValidateJobStatus parses an optional status filter. An empty string means no filter.
func ValidateJobStatus(status string) (*model.JobStatus, *ValidationResult) {
	result := &ValidationResult{Valid: true}
	if status == "" {
		return nil, result
	}

	s := model.JobStatus(strings.ToLower(status))
	if _, ok := knownJobStatuses[s]; !ok {
		result.AddError("status", "Unknown job status '"+status+"'")
		return nil, result
	}
	return &s, result
}

// ValidateEngineSettings applies defaults to settings and reports every problem.
func ValidateEngineSettings(settings *config.EngineSettings) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if settings == nil {
		result.AddError("settings", "Engine settings are required")
		return result
	}

	settings.ApplyDefaults()
	for _, problem := range settings.Validate() {
		field, _, _ := strings.Cut(problem, " ")
		result.AddError(field, problem)
	}

	return result
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}

// ValidateJSONBinding binds the request body and runs its binding tags
func ValidateJSONBinding(c *gin.Context, target interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := c.ShouldBindJSON(target); err != nil {
		result.AddError("request_body", "Invalid request body: "+err.Error())
	}

	return result
}

// ValidateQueryBinding validates query parameter binding
func ValidateQueryBinding(c *gin.Context, target interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := c.ShouldBindQuery(target); err != nil {
		result.AddError("query_parameters", "Invalid query parameters: "+err.Error())
	}

	return result
}
