// Package testing provides fixtures and helpers for testing the catalog engine.
package testing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvesthub/catalog-engine/config"
	"github.com/harvesthub/catalog-engine/internal/engine"
	"github.com/harvesthub/catalog-engine/internal/source"
	"github.com/harvesthub/catalog-engine/model"
	"github.com/harvesthub/catalog-engine/services"
)

// SampleItems is the three-item catalog used across tests. Combine X sits at
// (0,0) and Combine Y at (0,1); Tractor Z has no location.
func SampleItems() []model.Item {
	return []model.Item{
		{
			ID: "1", Name: "Combine X", Description: "Large grain combine harvester",
			PricePerDay: 100, Rating: model.Float64Ptr(4), RentalCount: model.IntPtr(2),
			Location: &model.GeoPoint{Latitude: 0, Longitude: 0},
		},
		{
			ID: "2", Name: "Combine Y", Description: "Compact combine for small fields",
			PricePerDay: 50, Rating: model.Float64Ptr(5),
			Location: &model.GeoPoint{Latitude: 0, Longitude: 1},
		},
		{
			ID: "3", Name: "Tractor Z", Description: "Utility tractor",
			PricePerDay: 80, Rating: model.Float64Ptr(3), RentalCount: model.IntPtr(4),
		},
	}
}

// Interval builds a booking spanning whole days counted from 2026-06-01 UTC.
func Interval(id string, startDay, endDay int, value float64) model.Interval {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return model.Interval{
		ID:        id,
		RequestID: id,
		Start:     base.AddDate(0, 0, startDay),
		End:       base.AddDate(0, 0, endDay),
		Value:     value,
	}
}

// CreateTestEngine creates an engine over a static catalog, refreshes it once
// and stops it when the test ends. With no items SampleItems is used.
func CreateTestEngine(t *testing.T, items ...model.Item) *engine.Engine {
	t.Helper()
	if len(items) == 0 {
		items = SampleItems()
	}

	eng, err := engine.New(engine.Options{
		Settings:   config.DefaultEngineSettings(),
		Loader:     source.NewStatic("static", items),
		MaxWorkers: 2,
	})
	require.NoError(t, err, "Failed to create test engine")
	t.Cleanup(eng.Close)

	_, err = eng.Refresh(context.Background())
	require.NoError(t, err, "Failed to refresh test catalog")
	return eng
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	LogProgress  bool
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 20 * time.Millisecond,
		LogProgress:  false,
	}
}

// WaitForJobCompletion polls a job until it reaches a terminal status or times out.
func WaitForJobCompletion(t *testing.T, jobManager services.JobManager, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()
	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not complete within %v timeout", jobID, opts.Timeout)
			return nil
		case <-ticker.C:
			job, err := jobManager.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			if job.Status.IsTerminal() {
				return job
			}
			if opts.LogProgress && job.Progress != nil {
				t.Logf("Job %s progress: %d/%d - %s", jobID, job.Progress.Current, job.Progress.Total, job.Progress.Message)
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType, expectedSource string) {
	t.Helper()
	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed")
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.Equal(t, expectedSource, job.Source, "Job source should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}

// QueryTestCase represents a test case for query execution
type QueryTestCase struct {
	Name          string
	Query         services.Query
	ExpectedCount int
	ExpectedIDs   []string // in order; nil skips the check
	ValidateFunc  func(t *testing.T, result services.QueryResult)
}

// RunQueryTests runs a suite of query tests against an executor.
func RunQueryTests(t *testing.T, executor services.QueryExecutor, tests []QueryTestCase) {
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			result, err := executor.Execute(context.Background(), tt.Query)
			require.NoError(t, err, "Query should not fail")

			assert.Equal(t, tt.ExpectedCount, result.Total, "Result count should match")
			assert.Equal(t, tt.Query.Kind(), result.Kind)
			assert.NotEmpty(t, result.QueryID)

			if tt.ExpectedIDs != nil {
				assert.Equal(t, tt.ExpectedIDs, ItemIDs(result.Items), "Result order should match")
			}
			if tt.ValidateFunc != nil {
				tt.ValidateFunc(t, result)
			}
		})
	}
}

// ItemIDs lists the IDs of ranked items in order.
func ItemIDs(items []services.RankedItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.Item.ID
	}
	return ids
}

// LargeCatalog generates n items with varied prices and ratings for benchmarks.
func LargeCatalog(n int) []model.Item {
	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{
			ID:          fmt.Sprintf("item-%05d", i),
			Name:        fmt.Sprintf("Harvester %d", i),
			PricePerDay: float64(20 + (i*37)%400),
			Rating:      model.Float64Ptr(float64(i%5) + 0.5),
			Location:    &model.GeoPoint{Latitude: float64(i%90) * 0.5, Longitude: float64(i%180) * 0.5},
		}
	}
	return items
}
