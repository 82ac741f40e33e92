package api

import (
	"testing"

	"github.com/harvesthub/catalog-engine/config"
	"github.com/harvesthub/catalog-engine/model"
)

func TestValidationResult_AddError(t *testing.T) {
	result := &ValidationResult{Valid: true}

	result.AddError("field1", "error message")

	if result.Valid {
		t.Error("Expected Valid to be false after adding error")
	}

	if len(result.Errors) != 1 {
		t.Errorf("Expected 1 error, got %d", len(result.Errors))
	}

	if result.Errors[0].Field != "field1" {
		t.Errorf("Expected field 'field1', got '%s'", result.Errors[0].Field)
	}

	if result.Errors[0].Message != "error message" {
		t.Errorf("Expected message 'error message', got '%s'", result.Errors[0].Message)
	}
}

func TestValidationResult_HasErrors(t *testing.T) {
	result := &ValidationResult{Valid: true}

	if result.HasErrors() {
		t.Error("Expected HasErrors to be false for empty result")
	}

	result.AddError("field", "message")

	if !result.HasErrors() {
		t.Error("Expected HasErrors to be true after adding error")
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		wantValid bool
	}{
		{name: "valid id", id: "job-1", wantValid: true},
		{name: "empty id", id: "", wantValid: false},
		{name: "leading whitespace", id: " job-1", wantValid: false},
		{name: "trailing whitespace", id: "job-1 ", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateID("jobId", tt.id)
			if result.Valid != tt.wantValid {
				t.Errorf("ValidateID(%q) valid = %v, want %v", tt.id, result.Valid, tt.wantValid)
			}
		})
	}
}

func TestValidateJobStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		wantStatus *model.JobStatus
		wantValid  bool
	}{
		{name: "no filter", status: "", wantValid: true},
		{name: "completed", status: "completed", wantStatus: statusPtr(model.JobStatusCompleted), wantValid: true},
		{name: "case insensitive", status: "FAILED", wantStatus: statusPtr(model.JobStatusFailed), wantValid: true},
		{name: "unknown", status: "sleeping", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, result := ValidateJobStatus(tt.status)
			if result.Valid != tt.wantValid {
				t.Fatalf("valid = %v, want %v", result.Valid, tt.wantValid)
			}
			switch {
			case tt.wantStatus == nil && status != nil:
				t.Errorf("Expected no status filter, got %s", *status)
			case tt.wantStatus != nil && (status == nil || *status != *tt.wantStatus):
				t.Errorf("Expected status %s, got %v", *tt.wantStatus, status)
			}
		})
	}
}

func statusPtr(s model.JobStatus) *model.JobStatus { return &s }

func TestValidateEngineSettings(t *testing.T) {
	t.Run("nil settings", func(t *testing.T) {
		if result := ValidateEngineSettings(nil); result.Valid {
			t.Error("Expected nil settings to be invalid")
		}
	})

	t.Run("zero settings take defaults", func(t *testing.T) {
		settings := config.EngineSettings{}
		result := ValidateEngineSettings(&settings)
		if result.HasErrors() {
			t.Errorf("Expected defaults to be valid, got %v", result.Errors)
		}
		if settings.MinKeywordLength != 4 {
			t.Errorf("Expected default min_keyword_length 4, got %d", settings.MinKeywordLength)
		}
	})

	t.Run("every problem is reported", func(t *testing.T) {
		settings := config.EngineSettings{UnavailableFactor: 2, CostResolution: -1}
		result := ValidateEngineSettings(&settings)
		if len(result.Errors) != 2 {
			t.Fatalf("Expected 2 errors, got %d: %v", len(result.Errors), result.Errors)
		}
		if result.Errors[0].Field != "unavailable_factor" {
			t.Errorf("Expected field 'unavailable_factor', got '%s'", result.Errors[0].Field)
		}
		if result.Errors[1].Field != "cost_resolution" {
			t.Errorf("Expected field 'cost_resolution', got '%s'", result.Errors[1].Field)
		}
	})
}
