package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Job Queue Methods

const jobColumns = `id, job_type, priority, status, payload,
	retry_count, max_retries, next_retry_at, error_message, last_error_at,
	created_at, started_at, completed_at`

func (db *DB) scanJob(row interface{ Scan(...any) error }) (*models.Job, error) {
	var job models.Job
	var jobTypeStr, statusStr string
	var payloadBytes []byte

	err := row.Scan(
		&job.ID, &jobTypeStr, &job.Priority, &statusStr, &payloadBytes,
		&job.RetryCount, &job.MaxRetries, &job.NextRetryAt, &job.ErrorMessage, &job.LastErrorAt,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	job.JobType = models.JobType(jobTypeStr)
	job.Status = models.JobStatus(statusStr)
	if err := job.SetPayload(payloadBytes); err != nil {
		db.logger.Warn().Err(err).Str("job_id", job.ID.String()).Msg("failed to parse job payload")
	}
	return &job, nil
}

func (db *DB) scanJobs(rows pgx.Rows) ([]*models.Job, error) {
	defer rows.Close()
	var jobs []*models.Job
	for rows.Next() {
		job, err := db.scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CreateJob creates a new job in the queue.
func (db *DB) CreateJob(ctx context.Context, job *models.Job) error {
	payloadBytes, err := job.PayloadJSON()
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO job_queue (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, job.ID, job.JobType, job.Priority, job.Status, payloadBytes,
		job.RetryCount, job.MaxRetries, job.NextRetryAt, job.ErrorMessage, job.LastErrorAt,
		job.CreatedAt, job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// GetJobByID returns a job by its ID.
func (db *DB) GetJobByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := db.scanJob(db.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM job_queue WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("get job by ID", err)
	}
	return job, nil
}

// ListJobs returns jobs with optional status and type filters, newest first.
func (db *DB) ListJobs(ctx context.Context, status *models.JobStatus, jobType *models.JobType, limit int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM job_queue WHERE TRUE`
	args := []interface{}{}
	argNum := 1

	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *status)
		argNum++
	}

	if jobType != nil {
		query += fmt.Sprintf(" AND job_type = $%d", argNum)
		args = append(args, *jobType)
		argNum++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, limit)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return db.scanJobs(rows)
}

// ListJobsReadyForRetry returns failed jobs ready to be retried.
func (db *DB) ListJobsReadyForRetry(ctx context.Context, limit int) ([]*models.Job, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM job_queue
		WHERE status = 'failed'
		  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY priority DESC, next_retry_at ASC NULLS FIRST
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs ready for retry: %w", err)
	}
	return db.scanJobs(rows)
}

// UpdateJob updates a job in the queue.
func (db *DB) UpdateJob(ctx context.Context, job *models.Job) error {
	payloadBytes, err := job.PayloadJSON()
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		UPDATE job_queue
		SET status = $2, payload = $3,
		    retry_count = $4, max_retries = $5, next_retry_at = $6,
		    error_message = $7, last_error_at = $8,
		    started_at = $9, completed_at = $10
		WHERE id = $1
	`, job.ID, job.Status, payloadBytes,
		job.RetryCount, job.MaxRetries, job.NextRetryAt,
		job.ErrorMessage, job.LastErrorAt,
		job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// GetJobQueueSummary returns queue statistics.
func (db *DB) GetJobQueueSummary(ctx context.Context) (*models.JobQueueSummary, error) {
	summary := &models.JobQueueSummary{
		ByType: make(map[models.JobType]int),
	}

	err := db.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') as pending,
			COUNT(*) FILTER (WHERE status = 'running') as running,
			COUNT(*) FILTER (WHERE status = 'completed') as completed,
			COUNT(*) FILTER (WHERE status = 'failed') as failed,
			COUNT(*) FILTER (WHERE status = 'dead_letter') as dead_letter,
			MIN(created_at) FILTER (WHERE status = 'pending') as oldest_pending
		FROM job_queue
	`).Scan(
		&summary.TotalPending, &summary.TotalRunning, &summary.TotalCompleted,
		&summary.TotalFailed, &summary.TotalDeadLetter, &summary.OldestPending,
	)
	if err != nil {
		return nil, fmt.Errorf("get job queue summary: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT job_type, COUNT(*)
		FROM job_queue
		WHERE status IN ('pending', 'running', 'failed')
		GROUP BY job_type
	`)
	if err != nil {
		return nil, fmt.Errorf("get job queue summary by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var jobTypeStr string
		var count int
		if err := rows.Scan(&jobTypeStr, &count); err != nil {
			return nil, fmt.Errorf("scan job type count: %w", err)
		}
		summary.ByType[models.JobType(jobTypeStr)] = count
	}
	return summary, rows.Err()
}

// CleanupOldJobs removes completed and dead letter jobs older than the specified days.
func (db *DB) CleanupOldJobs(ctx context.Context, retentionDays int) (int64, error) {
	result, err := db.Pool.Exec(ctx, `
		DELETE FROM job_queue
		WHERE status IN ('completed', 'dead_letter')
		  AND completed_at < NOW() - INTERVAL '1 day' * $1
	`, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("cleanup old jobs: %w", err)
	}
	return result.RowsAffected(), nil
}

// GetNextPendingJob atomically claims the next pending job for processing.
// It returns nil when the queue is empty.
func (db *DB) GetNextPendingJob(ctx context.Context) (*models.Job, error) {
	job, err := db.scanJob(db.Pool.QueryRow(ctx, `
		UPDATE job_queue
		SET status = 'running', started_at = NOW()
		WHERE id = (
			SELECT id FROM job_queue
			WHERE status = 'pending'
			ORDER BY priority DESC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get next pending job: %w", err)
	}
	return job, nil
}
