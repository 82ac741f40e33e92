package jobs

import (
	"maps"
	"sync"
	"time"

	"github.com/harvesthub/catalog-engine/model"
)

// recentWindow bounds the per-type execution history.
const recentWindow = 100

// JobMetricsData is a point-in-time copy of JobMetrics.
type JobMetricsData struct {
	JobsCreated          int64                     `json:"jobs_created"`
	JobsCompleted        int64                     `json:"jobs_completed"`
	JobsFailed           int64                     `json:"jobs_failed"`
	TotalExecutionTime   time.Duration             `json:"total_execution_time_ns"`
	AverageExecutionTime time.Duration             `json:"average_execution_time_ns"`
	JobsByType           map[model.JobType]int64   `json:"jobs_by_type"`
	JobsByStatus         map[model.JobStatus]int64 `json:"jobs_by_status"`
	SuccessRate          float64                   `json:"success_rate"`
	LastUpdated          time.Time                 `json:"last_updated"`
}

// JobMetrics keeps in-process job counters for the /jobs/metrics endpoint.
// The Prometheus view of the same events lives in internal/metrics.
type JobMetrics struct {
	mu           sync.RWMutex
	created      int64
	completed    int64
	failed       int64
	totalExec    time.Duration
	byType       map[model.JobType]int64
	byStatus     map[model.JobStatus]int64
	recentByType map[model.JobType][]time.Duration
	lastUpdated  time.Time
}

func NewJobMetrics() *JobMetrics {
	return &JobMetrics{
		byType:       make(map[model.JobType]int64),
		byStatus:     make(map[model.JobStatus]int64),
		recentByType: make(map[model.JobType][]time.Duration),
		lastUpdated:  time.Now(),
	}
}

func (m *JobMetrics) RecordJobCreated(jobType model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.created++
	m.byType[jobType]++
	m.byStatus[model.JobStatusPending]++
	m.lastUpdated = time.Now()
}

// RecordJobStatusChange moves one job between status buckets.
func (m *JobMetrics) RecordJobStatusChange(oldStatus, newStatus model.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if oldStatus != "" && m.byStatus[oldStatus] > 0 {
		m.byStatus[oldStatus]--
	}
	m.byStatus[newStatus]++
	m.lastUpdated = time.Now()
}

func (m *JobMetrics) RecordJobCompleted(jobType model.JobType, took time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.completed++
	m.totalExec += took

	recent := append(m.recentByType[jobType], took)
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	m.recentByType[jobType] = recent
	m.lastUpdated = time.Now()
}

func (m *JobMetrics) RecordJobFailed(model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failed++
	m.lastUpdated = time.Now()
}

// GetMetrics returns a copy safe to serialize.
func (m *JobMetrics) GetMetrics() JobMetricsData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var avg time.Duration
	if m.completed > 0 {
		avg = m.totalExec / time.Duration(m.completed)
	}
	return JobMetricsData{
		JobsCreated:          m.created,
		JobsCompleted:        m.completed,
		JobsFailed:           m.failed,
		TotalExecutionTime:   m.totalExec,
		AverageExecutionTime: avg,
		JobsByType:           maps.Clone(m.byType),
		JobsByStatus:         maps.Clone(m.byStatus),
		SuccessRate:          m.successRate(),
		LastUpdated:          m.lastUpdated,
	}
}

// GetAverageExecutionTimeByType averages the most recent runs of one job type.
func (m *JobMetrics) GetAverageExecutionTimeByType(jobType model.JobType) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recent := m.recentByType[jobType]
	if len(recent) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range recent {
		total += d
	}
	return total / time.Duration(len(recent))
}

// GetSuccessRate returns completed / (completed + failed), or 1 with no finished jobs.
func (m *JobMetrics) GetSuccessRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.successRate()
}

func (m *JobMetrics) successRate() float64 {
	finished := m.completed + m.failed
	if finished == 0 {
		return 1.0
	}
	return float64(m.completed) / float64(finished)
}

// GetCurrentWorkload returns the number of pending and running jobs.
func (m *JobMetrics) GetCurrentWorkload() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byStatus[model.JobStatusPending] + m.byStatus[model.JobStatusRunning]
}
