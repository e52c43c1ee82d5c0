// Package jobs provides the background job queue that runs credential generation.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/metrics"
	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// JobStore defines the interface for job persistence operations.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJobByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateJob(ctx context.Context, job *models.Job) error
	// GetNextPendingJob claims the highest-priority pending job, or returns nil.
	GetNextPendingJob(ctx context.Context) (*models.Job, error)
	ListJobsReadyForRetry(ctx context.Context, limit int) ([]*models.Job, error)
	GetJobQueueSummary(ctx context.Context) (*models.JobQueueSummary, error)
	CleanupOldJobs(ctx context.Context, retentionDays int) (int64, error)
}

// JobHandler processes jobs of a specific type.
type JobHandler interface {
	// Handle processes the job and returns a result map or error.
	Handle(ctx context.Context, job *models.Job) (map[string]interface{}, error)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error as not retryable. The job goes straight to
// the dead letter queue. errors.Is and errors.As still see the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// QueueConfig holds configuration for the job queue.
type QueueConfig struct {
	// WorkerCount is the number of concurrent workers.
	WorkerCount int
	// PollInterval is how often to check for new jobs.
	PollInterval time.Duration
	// RetryPollInterval is how often to check for jobs ready to retry.
	RetryPollInterval time.Duration
	// CleanupInterval is how often to clean up old jobs.
	CleanupInterval time.Duration
	// JobRetentionDays is how long to keep completed/dead letter jobs.
	JobRetentionDays int
	// MaxJobDuration is the maximum time a job can run before timing out.
	MaxJobDuration time.Duration
}

// DefaultQueueConfig returns a QueueConfig with sensible defaults.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		WorkerCount:       4,
		PollInterval:      2 * time.Second,
		RetryPollInterval: 30 * time.Second,
		CleanupInterval:   1 * time.Hour,
		JobRetentionDays:  30,
		MaxJobDuration:    1 * time.Hour,
	}
}

// Queue claims pending jobs from the store and dispatches them to handlers.
type Queue struct {
	store    JobStore
	config   QueueConfig
	handlers map[models.JobType]JobHandler
	metrics  *metrics.PrometheusMetrics
	logger   zerolog.Logger

	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	workerWg sync.WaitGroup
}

// NewQueue creates a new job queue.
func NewQueue(store JobStore, config QueueConfig, m *metrics.PrometheusMetrics, logger zerolog.Logger) *Queue {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	return &Queue{
		store:    store,
		config:   config,
		handlers: make(map[models.JobType]JobHandler),
		metrics:  m,
		logger:   logger.With().Str("component", "job_queue").Logger(),
		stopCh:   make(chan struct{}),
	}
}

// RegisterHandler registers a handler for a specific job type.
func (q *Queue) RegisterHandler(jobType models.JobType, handler JobHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
	q.logger.Info().Str("job_type", string(jobType)).Msg("registered job handler")
}

// Enqueue adds a new job to the queue. Nothing else is persisted at enqueue
// time, so a job dropped before it runs leaves no partial state.
func (q *Queue) Enqueue(ctx context.Context, job *models.Job) error {
	if err := q.store.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}

	q.logger.Info().
		Str("job_id", job.ID.String()).
		Str("job_type", string(job.JobType)).
		Int("priority", job.Priority).
		Int64("configuration_id", job.Payload.ConfigurationID).
		Int64("user_id", job.Payload.UserID).
		Msg("job enqueued")

	return nil
}

// Get returns a job by id.
func (q *Queue) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return q.store.GetJobByID(ctx, id)
}

// Start begins processing jobs.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return fmt.Errorf("queue already running")
	}
	q.running = true
	q.stopCh = make(chan struct{})
	q.mu.Unlock()

	q.logger.Info().Int("workers", q.config.WorkerCount).Msg("starting job queue")

	for i := 0; i < q.config.WorkerCount; i++ {
		q.workerWg.Add(1)
		go q.loop(ctx, q.logger.With().Int("worker_id", i).Logger(), q.config.PollInterval, q.processNextJob)
	}

	q.workerWg.Add(2)
	go q.loop(ctx, q.logger.With().Str("processor", "retry").Logger(), q.config.RetryPollInterval, q.processRetries)
	go q.loop(ctx, q.logger.With().Str("processor", "cleanup").Logger(), q.config.CleanupInterval, q.processCleanup)

	return nil
}

// Stop gracefully stops the queue.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	q.mu.Unlock()

	q.logger.Info().Msg("stopping job queue")
	q.workerWg.Wait()
	q.logger.Info().Msg("job queue stopped")
}

// Summary returns current queue statistics.
func (q *Queue) Summary(ctx context.Context) (*models.JobQueueSummary, error) {
	return q.store.GetJobQueueSummary(ctx)
}

// loop calls tick every interval until ctx is done or the queue stops.
func (q *Queue) loop(ctx context.Context, logger zerolog.Logger, interval time.Duration, tick func(context.Context, zerolog.Logger)) {
	defer q.workerWg.Done()

	logger.Debug().Dur("interval", interval).Msg("loop started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("loop stopping due to context cancellation")
			return
		case <-q.stopCh:
			logger.Debug().Msg("loop stopping due to stop signal")
			return
		case <-ticker.C:
			tick(ctx, logger)
		}
	}
}

// processNextJob claims the next pending job and runs its handler.
func (q *Queue) processNextJob(ctx context.Context, logger zerolog.Logger) {
	job, err := q.store.GetNextPendingJob(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to get next pending job")
		return
	}
	if job == nil {
		return
	}

	logger = logger.With().
		Str("job_id", job.ID.String()).
		Str("job_type", string(job.JobType)).
		Int64("configuration_id", job.Payload.ConfigurationID).
		Int64("user_id", job.Payload.UserID).
		Logger()
	logger.Info().Int("retry_count", job.RetryCount).Msg("processing job")

	q.mu.RLock()
	handler, exists := q.handlers[job.JobType]
	q.mu.RUnlock()

	if !exists {
		q.finish(ctx, logger, job, nil, Permanent(fmt.Errorf("no handler registered for job type %s", job.JobType)))
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, q.config.MaxJobDuration)
	defer cancel()

	result, err := handler.Handle(jobCtx, job)
	q.finish(ctx, logger, job, result, err)
}

// finish records the handler outcome on the job and persists it.
func (q *Queue) finish(ctx context.Context, logger zerolog.Logger, job *models.Job, result map[string]interface{}, err error) {
	switch {
	case err == nil:
		job.Complete(result)
		logger.Info().Dur("duration", job.Duration()).Msg("job completed successfully")
	case IsPermanent(err):
		job.FailPermanently(err.Error())
		logger.Error().Err(err).Msg("job failed permanently, moved to dead letter queue")
	case job.Fail(err.Error()):
		logger.Warn().
			Err(err).
			Int("retry_count", job.RetryCount).
			Time("next_retry_at", *job.NextRetryAt).
			Msg("job failed, will retry")
	default:
		logger.Error().
			Err(err).
			Int("retry_count", job.RetryCount).
			Msg("job failed, moved to dead letter queue")
	}
	q.metrics.RecordJob(string(job.JobType), string(job.Status))

	if err := q.store.UpdateJob(ctx, job); err != nil {
		logger.Error().Err(err).Msg("failed to update job after processing")
	}
}

// processRetries requeues failed jobs whose backoff has elapsed.
func (q *Queue) processRetries(ctx context.Context, logger zerolog.Logger) {
	jobs, err := q.store.ListJobsReadyForRetry(ctx, 100)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list jobs ready for retry")
		return
	}

	for _, job := range jobs {
		job.Status = models.JobStatusPending
		job.StartedAt = nil

		if err := q.store.UpdateJob(ctx, job); err != nil {
			logger.Error().
				Err(err).
				Str("job_id", job.ID.String()).
				Msg("failed to requeue job for retry")
			continue
		}

		logger.Info().
			Str("job_id", job.ID.String()).
			Str("job_type", string(job.JobType)).
			Int("retry_count", job.RetryCount).
			Msg("job requeued for retry")
	}
}

// processCleanup deletes terminal jobs older than the retention period.
func (q *Queue) processCleanup(ctx context.Context, logger zerolog.Logger) {
	deleted, err := q.store.CleanupOldJobs(ctx, q.config.JobRetentionDays)
	if err != nil {
		logger.Error().Err(err).Msg("failed to cleanup old jobs")
		return
	}
	if deleted > 0 {
		logger.Info().Int64("deleted", deleted).Int("retention_days", q.config.JobRetentionDays).Msg("cleaned up old jobs")
	}
}
