package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/internal/logging"
)

// ErrorCode is the machine-readable code clients switch on.
type ErrorCode string

const (
	// 4xx
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrorCodeItemNotFound     ErrorCode = "ITEM_NOT_FOUND"
	ErrorCodeJobNotFound      ErrorCode = "JOB_NOT_FOUND"
	ErrorCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrorCodeInvalidJSON      ErrorCode = "INVALID_JSON"
	ErrorCodeInvalidQuery     ErrorCode = "INVALID_QUERY"

	// 5xx (CATALOG_NOT_READY is 503, SOURCE_UNAVAILABLE is 502)
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeCatalogNotReady    ErrorCode = "CATALOG_NOT_READY"
	ErrorCodeSourceUnavailable  ErrorCode = "SOURCE_UNAVAILABLE"
	ErrorCodeQueryFailed        ErrorCode = "QUERY_FAILED"
	ErrorCodeJobExecutionFailed ErrorCode = "JOB_EXECUTION_FAILED"
	ErrorCodeNotSupported       ErrorCode = "NOT_SUPPORTED"
)

// ErrorDetail points at the offending request field.
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError is the body of every non-2xx response.
type APIError struct {
	Error     string        `json:"error"`
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
}

func APIErrorResponse(code ErrorCode, message string, details ...ErrorDetail) *APIError {
	return &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// SendError writes an APIError, tagged with the request ID when one was assigned.
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...ErrorDetail) {
	errorResponse := APIErrorResponse(code, message, details...)

	if requestID, exists := c.Get(requestIDKey); exists {
		if id, ok := requestID.(string); ok {
			errorResponse.RequestID = id
		}
	}

	c.JSON(statusCode, errorResponse)
}

// SendStructuredValidationError reports every failed field at once.
func SendStructuredValidationError(c *gin.Context, result *ValidationResult) {
	details := make([]ErrorDetail, len(result.Errors))
	for i, err := range result.Errors {
		details[i] = ErrorDetail{
			Field:   err.Field,
			Message: err.Message,
			Code:    "VALIDATION_ERROR",
		}
	}

	SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed", details...)
}

func SendJobNotFoundError(c *gin.Context, jobID string) {
	SendError(c, http.StatusNotFound, ErrorCodeJobNotFound,
		"Job '"+jobID+"' not found")
}

func SendInvalidJSONError(c *gin.Context, err error) {
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON,
		"Invalid JSON in request body: "+err.Error())
}

// SendInternalError logs err with the request's logger before responding.
func SendInternalError(c *gin.Context, operation string, err error) {
	logging.Ctx(c.Request.Context()).Error().Err(err).Str("operation", operation).Msg("request failed")
	SendError(c, http.StatusInternalServerError, ErrorCodeInternalError,
		"Internal error during "+operation+": "+err.Error())
}

func SendJobExecutionError(c *gin.Context, operation string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodeJobExecutionFailed,
		"Failed to start "+operation+" job: "+err.Error())
}

// SendNotSupportedError is sent when the engine behind the API lacks an optional capability.
func SendNotSupportedError(c *gin.Context, feature string) {
	SendError(c, http.StatusNotImplemented, ErrorCodeNotSupported,
		feature+" is not supported by this engine")
}

// SendEngineError maps an engine error onto a status code by its sentinel.
func SendEngineError(c *gin.Context, operation string, err error) {
	var validationErr *internalErrors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error(), ErrorDetail{
			Field:   validationErr.Field,
			Message: validationErr.Message,
			Code:    "VALIDATION_ERROR",
		})
	case errors.Is(err, internalErrors.ErrInvalidInput):
		SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
	case errors.Is(err, internalErrors.ErrItemNotFound):
		SendError(c, http.StatusNotFound, ErrorCodeItemNotFound, err.Error())
	case errors.Is(err, internalErrors.ErrJobNotFound):
		SendError(c, http.StatusNotFound, ErrorCodeJobNotFound, err.Error())
	case errors.Is(err, internalErrors.ErrNoSnapshot):
		SendError(c, http.StatusServiceUnavailable, ErrorCodeCatalogNotReady,
			"The catalog has not been loaded yet; retry after the first refresh")
	case errors.Is(err, internalErrors.ErrSourceUnavailable):
		SendError(c, http.StatusBadGateway, ErrorCodeSourceUnavailable, err.Error())
	default:
		SendInternalError(c, operation, err)
	}
}
