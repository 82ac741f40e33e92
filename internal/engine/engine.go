// Package engine answers catalog queries against the current snapshot and
// keeps that snapshot fresh.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/harvesthub/catalog-engine/config"
	"github.com/harvesthub/catalog-engine/internal/analytics"
	"github.com/harvesthub/catalog-engine/internal/jobs"
	"github.com/harvesthub/catalog-engine/internal/logging"
	"github.com/harvesthub/catalog-engine/internal/source"
	"github.com/harvesthub/catalog-engine/model"
	"github.com/harvesthub/catalog-engine/services"
	"github.com/harvesthub/catalog-engine/store"
)

// Options configures an Engine. Only Loader is required.
type Options struct {
	Settings      config.EngineSettings
	Loader        source.Loader
	MaxWorkers    int
	JobRetention  time.Duration
	SnapshotPath  string // empty disables snapshot files
	SaveOnRefresh bool
	Analytics     *analytics.Service
}

// Engine owns the snapshot store and the catalog source.
// It implements the services.CatalogEngine interface.
type Engine struct {
	store      *store.SnapshotStore
	loader     source.Loader
	jobManager *jobs.Manager
	analytics  *analytics.Service
	settings   atomic.Pointer[config.EngineSettings]

	snapshotPath  string
	saveOnRefresh bool

	refreshMu sync.Mutex // one refresh at a time
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates an engine and starts its job manager. Call Close when done.
func New(opts Options) (*Engine, error) {
	if opts.Loader == nil {
		return nil, fmt.Errorf("catalog loader cannot be nil")
	}
	settings := opts.Settings
	settings.ApplyDefaults()
	if problems := settings.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid engine settings: %v", problems)
	}

	jobManager := jobs.NewManager(opts.MaxWorkers)
	jobManager.SetRetention(opts.JobRetention)

	tracker := opts.Analytics
	if tracker == nil {
		tracker = analytics.NewService(0)
	}

	e := &Engine{
		store:         store.NewSnapshotStore(settings.MinKeywordLength),
		loader:        opts.Loader,
		jobManager:    jobManager,
		analytics:     tracker,
		snapshotPath:  opts.SnapshotPath,
		saveOnRefresh: opts.SaveOnRefresh && opts.SnapshotPath != "",
		logger:        logging.With().Str("component", "engine").Str("source", opts.Loader.Name()).Logger(),
		now:           time.Now,
	}
	e.settings.Store(&settings)
	jobManager.Start()
	return e, nil
}

var _ services.CatalogEngine = (*Engine)(nil)

// Close stops background jobs and waits for running ones to return.
func (e *Engine) Close() {
	e.jobManager.Stop()
}

// Store exposes the snapshot store.
func (e *Engine) Store() *store.SnapshotStore {
	return e.store
}

// Jobs exposes the job manager.
func (e *Engine) Jobs() *jobs.Manager {
	return e.jobManager
}

// SourceName names the configured catalog source.
func (e *Engine) SourceName() string {
	return e.loader.Name()
}

// GetJob returns a copy of a job.
func (e *Engine) GetJob(jobID string) (*model.Job, error) {
	return e.jobManager.GetJob(jobID)
}

// ListJobs returns jobs filtered by source and status, newest first.
func (e *Engine) ListJobs(source string, status *model.JobStatus) []*model.Job {
	return e.jobManager.ListJobs(source, status)
}

// CatalogStats describes the current snapshot.
func (e *Engine) CatalogStats() (model.CatalogStats, error) {
	h, err := e.store.Current()
	if err != nil {
		return model.CatalogStats{}, err
	}
	return analytics.ComputeCatalogStats(h.Snapshot()), nil
}

// Dashboard combines query analytics with the catalog statistics. Before the
// first snapshot the catalog section is empty.
func (e *Engine) Dashboard() (model.AnalyticsDashboard, error) {
	var stats model.CatalogStats
	if h, err := e.store.Current(); err == nil {
		stats = analytics.ComputeCatalogStats(h.Snapshot())
	}
	return e.analytics.Dashboard(stats), nil
}
