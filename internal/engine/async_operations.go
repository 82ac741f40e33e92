package engine

import (
	"context"
	"fmt"

	"github.com/harvesthub/catalog-engine/model"
)

// RefreshAsync runs Refresh as a background job and returns its ID.
func (e *Engine) RefreshAsync() (string, error) {
	jobID := e.jobManager.CreateJob(model.JobTypeRefreshCatalog, e.loader.Name(), map[string]string{
		"operation": "refresh_catalog",
	})

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return e.executeRefreshJob(ctx, jobID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start refresh job: %w", err)
	}
	return jobID, nil
}

// executeRefreshJob executes the refresh job.
func (e *Engine) executeRefreshJob(ctx context.Context, jobID string) error {
	_, err := e.refresh(ctx, func(step int, message string) {
		e.jobManager.UpdateJobProgress(jobID, step, refreshSteps, message)
	})
	return err
}

// SaveSnapshotAsync runs SaveSnapshot as a background job and returns its ID.
func (e *Engine) SaveSnapshotAsync() (string, error) {
	if e.snapshotPath == "" {
		return "", e.SaveSnapshot()
	}
	if _, err := e.store.Current(); err != nil {
		return "", err
	}

	jobID := e.jobManager.CreateJob(model.JobTypeSaveSnapshot, e.loader.Name(), map[string]string{
		"operation": "save_snapshot",
		"path":      e.snapshotPath,
	})

	err := e.jobManager.ExecuteJob(jobID, func(_ context.Context, _ *model.Job) error {
		e.jobManager.UpdateJobProgress(jobID, 0, 1, "Writing snapshot")
		if err := e.SaveSnapshot(); err != nil {
			return err
		}
		e.jobManager.UpdateJobProgress(jobID, 1, 1, "Snapshot saved")
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to start save snapshot job: %w", err)
	}
	return jobID, nil
}
