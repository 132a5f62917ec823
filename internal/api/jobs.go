package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"perturbscope/app"
	"perturbscope/domain/core"
	"perturbscope/domain/mixscape"
)

// JobStatus is the lifecycle state of a classification job.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job tracks one background classification request.
type Job struct {
	ID         core.JobID      `json:"id"`
	DatasetDir string          `json:"dataset_dir"`
	Params     mixscape.Params `json:"params"`
	Status     JobStatus       `json:"status"`
	Error      string          `json:"error,omitempty"`
	RunID      core.RunID      `json:"run_id,omitempty"`
	CreatedAt  core.Timestamp  `json:"created_at"`
	FinishedAt *core.Timestamp `json:"finished_at,omitempty"`
}

// JobManager runs classification jobs in the background with a bounded
// worker pool. The pipeline itself stays single-threaded per job; only
// distinct jobs overlap. Jobs past the worker bound wait in a queue.
type JobManager struct {
	mu       sync.RWMutex
	jobs     map[core.JobID]*Job
	pending  []core.JobID
	active   int
	workers  int
	pipeline *app.Pipeline
	group    *errgroup.Group
	metrics  *Metrics
	log      *zap.Logger
}

// NewJobManager creates a manager running at most workers jobs at once.
func NewJobManager(pipeline *app.Pipeline, metrics *Metrics, log *zap.Logger, workers int) *JobManager {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &JobManager{
		jobs:     make(map[core.JobID]*Job),
		workers:  workers,
		pipeline: pipeline,
		group:    &errgroup.Group{},
		metrics:  metrics,
		log:      log,
	}
}

// Submit queues a job and returns a snapshot of its initial state
// without waiting for a worker slot; callers poll Get for progress.
// Execution uses a detached context: an abandoned HTTP request must not
// cancel a running classification.
func (m *JobManager) Submit(datasetDir string, params mixscape.Params) (Job, error) {
	if err := params.Validate(); err != nil {
		return Job{}, err
	}

	job := &Job{
		ID:         core.JobID(core.NewID()),
		DatasetDir: datasetDir,
		Params:     params,
		Status:     JobPending,
		CreatedAt:  core.Now(),
	}
	snapshot := *job

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.pending = append(m.pending, job.ID)
	spawn := m.active < m.workers
	if spawn {
		m.active++
	}
	m.mu.Unlock()

	if spawn {
		m.group.Go(m.drain)
	}
	return snapshot, nil
}

// drain runs queued jobs until the queue is empty, then gives up its
// worker slot. Submit keeps at most workers drainers alive, so a queued
// job always has a drainer that will reach it.
func (m *JobManager) drain() error {
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.active--
			m.mu.Unlock()
			return nil
		}
		id := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()

		m.execute(context.Background(), id)
	}
}

// Get returns a snapshot of the job.
func (m *JobManager) Get(id core.JobID) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, core.ErrJobNotFound
	}
	return *job, nil
}

// Wait blocks until all submitted jobs finish. Used by tests and
// graceful shutdown.
func (m *JobManager) Wait() {
	m.group.Wait()
}

func (m *JobManager) execute(ctx context.Context, id core.JobID) {
	m.mu.Lock()
	job := m.jobs[id]
	job.Status = JobRunning
	datasetDir := job.DatasetDir
	params := job.Params
	m.mu.Unlock()

	started := time.Now()
	record, _, err := m.pipeline.Run(ctx, datasetDir, params)
	finished := core.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	job.FinishedAt = &finished
	if err != nil {
		job.Status = JobFailed
		job.Error = err.Error()
		m.metrics.JobsTotal.WithLabelValues(string(JobFailed)).Inc()
		m.log.Error("classification job failed",
			zap.String("job_id", id.String()),
			zap.Error(err))
		return
	}
	job.Status = JobDone
	job.RunID = record.ID
	m.metrics.JobsTotal.WithLabelValues(string(JobDone)).Inc()
	m.metrics.JobDuration.Observe(time.Since(started).Seconds())
	m.log.Info("classification job done",
		zap.String("job_id", id.String()),
		zap.String("run_id", record.ID.String()))
}
