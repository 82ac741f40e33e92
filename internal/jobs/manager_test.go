package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/model"
)

func TestJobManager_CreateJob(t *testing.T) {
	manager := NewManager(2)
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeRefreshCatalog, "postgres", map[string]string{"trigger": "test"})
	require.NotEmpty(t, jobID)

	job, err := manager.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeRefreshCatalog, job.Type)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, "postgres", job.Source)
	assert.Equal(t, "test", job.Metadata["trigger"])

	_, err = manager.GetJob("missing")
	assert.True(t, errors.Is(err, apperrors.ErrJobNotFound))
}

func TestJobManager_ExecuteJob(t *testing.T) {
	manager := NewManager(2)
	manager.Start()
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeRefreshCatalog, "file", nil)
	err := manager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		manager.UpdateJobProgress(jobID, 50, 100, "halfway")
		manager.UpdateJobProgress(jobID, 100, 100, "done")
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	job, err := manager.Wait(ctx, jobID)
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Progress)
	assert.Equal(t, 100.0, job.Progress.GetProgressPercentage())
	assert.NotNil(t, job.CompletedAt)

	err = manager.ExecuteJob(jobID, func(context.Context, *model.Job) error { return nil })
	assert.Error(t, err, "a finished job cannot run again")
}

func TestJobManager_FailedJob(t *testing.T) {
	manager := NewManager(1)
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeRefreshCatalog, "redis", nil)
	require.NoError(t, manager.ExecuteJob(jobID, func(context.Context, *model.Job) error {
		return errors.New("source down")
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	job, err := manager.Wait(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Equal(t, "source down", job.Error)

	m := manager.GetMetrics()
	assert.Equal(t, int64(1), m.JobsFailed)
	assert.Equal(t, 0.0, manager.GetJobSuccessRate())
	assert.Zero(t, manager.GetCurrentWorkload())
}

func TestJobManager_StopCancelsRunningJobs(t *testing.T) {
	manager := NewManager(1)

	started := make(chan struct{})
	jobID := manager.CreateJob(model.JobTypeRefreshCatalog, "file", nil)
	require.NoError(t, manager.ExecuteJob(jobID, func(ctx context.Context, _ *model.Job) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))

	<-started
	manager.Stop()

	job, err := manager.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, job.Status)
}

func TestJobManager_ListAndCleanup(t *testing.T) {
	manager := NewManager(1)
	defer manager.Stop()

	a := manager.CreateJob(model.JobTypeRefreshCatalog, "file", nil)
	manager.CreateJob(model.JobTypeSaveSnapshot, "snapshot", nil)

	assert.Len(t, manager.ListJobs("", nil), 2)
	assert.Len(t, manager.ListJobs("file", nil), 1)
	pending := model.JobStatusPending
	assert.Len(t, manager.ListJobs("", &pending), 2)

	require.NoError(t, manager.ExecuteJob(a, func(context.Context, *model.Job) error { return nil }))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := manager.Wait(ctx, a)
	require.NoError(t, err)

	assert.Zero(t, manager.CleanupOldJobs(time.Hour))
	assert.Equal(t, 1, manager.CleanupOldJobs(-time.Second))
	assert.Len(t, manager.ListJobs("", nil), 1)
}
