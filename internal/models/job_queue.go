package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// JobType defines the type of job in the queue.
type JobType string

const (
	// JobTypeGenerateCredentialForUser generates one user's credential.
	JobTypeGenerateCredentialForUser JobType = "generate_credential_for_user"
	// JobTypeGenerateCredentialsForConfig fans out over one configuration's eligible users.
	JobTypeGenerateCredentialsForConfig JobType = "generate_credentials_for_config"
	// JobTypeGenerateAllCredentials fans out over every enabled configuration.
	JobTypeGenerateAllCredentials JobType = "generate_all_credentials"
)

// JobStatus defines the status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed and may be retried.
	JobStatusFailed JobStatus = "failed"
	// JobStatusDeadLetter indicates the job has exhausted all retries.
	JobStatusDeadLetter JobStatus = "dead_letter"
)

// DefaultMaxRetries is the default number of retry attempts.
const DefaultMaxRetries = 3

// Job is one unit of background work.
type Job struct {
	ID           uuid.UUID  `json:"id"`
	JobType      JobType    `json:"job_type"`
	Priority     int        `json:"priority"`
	Status       JobStatus  `json:"status"`
	Payload      JobPayload `json:"payload"`
	RetryCount   int        `json:"retry_count"`
	MaxRetries   int        `json:"max_retries"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	LastErrorAt  *time.Time `json:"last_error_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// JobPayload contains job-specific data stored as JSONB.
type JobPayload struct {
	Description     string `json:"description,omitempty"`
	ConfigurationID int64  `json:"configuration_id,omitempty"`
	UserID          int64  `json:"user_id,omitempty"`
	// TaskID correlates a credential row with the job that generated it.
	TaskID string `json:"task_id,omitempty"`

	// Result data (populated on completion)
	Result map[string]interface{} `json:"result,omitempty"`
}

// NewJob creates a new pending job.
func NewJob(jobType JobType, priority int, payload JobPayload) *Job {
	return &Job{
		ID:         uuid.New(),
		JobType:    jobType,
		Priority:   priority,
		Status:     JobStatusPending,
		Payload:    payload,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  time.Now(),
	}
}

// NewGenerateCredentialForUserJob creates a per-user generation job.
// The job id doubles as the credential's generation task id.
func NewGenerateCredentialForUserJob(configurationID, userID int64) *Job {
	job := NewJob(JobTypeGenerateCredentialForUser, 10, JobPayload{
		ConfigurationID: configurationID,
		UserID:          userID,
		Description:     "Generate credential for user",
	})
	job.Payload.TaskID = job.ID.String()
	return job
}

// NewGenerateCredentialsForConfigJob creates a per-configuration fan-out job.
func NewGenerateCredentialsForConfigJob(configurationID int64) *Job {
	return NewJob(JobTypeGenerateCredentialsForConfig, 5, JobPayload{
		ConfigurationID: configurationID,
		Description:     "Generate credentials for configuration",
	})
}

// NewGenerateAllCredentialsJob creates the global fan-out job.
func NewGenerateAllCredentialsJob() *Job {
	return NewJob(JobTypeGenerateAllCredentials, 0, JobPayload{
		Description: "Generate credentials for all enabled configurations",
	})
}

// Start marks the job as running.
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// Complete marks the job as completed successfully.
func (j *Job) Complete(result map[string]interface{}) {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.Payload.Result = result
}

// Fail marks the job as failed with the given error message.
// Returns true if the job should be retried, false if it should be moved to dead letter.
func (j *Job) Fail(errMsg string) bool {
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.LastErrorAt = &now
	j.RetryCount++

	if j.RetryCount >= j.MaxRetries {
		j.Status = JobStatusDeadLetter
		j.CompletedAt = &now
		return false
	}

	// Base delay: 30 seconds, max delay: 30 minutes
	backoffSeconds := math.Min(30*math.Pow(2, float64(j.RetryCount-1)), 1800)
	nextRetry := now.Add(time.Duration(backoffSeconds) * time.Second)
	j.NextRetryAt = &nextRetry

	return true
}

// FailPermanently moves the job to the dead letter queue without scheduling a
// retry.
func (j *Job) FailPermanently(errMsg string) {
	now := time.Now()
	j.Status = JobStatusDeadLetter
	j.ErrorMessage = errMsg
	j.LastErrorAt = &now
	j.CompletedAt = &now
	j.NextRetryAt = nil
	j.RetryCount++
}

// Cancel cancels a pending job.
func (j *Job) Cancel() bool {
	if j.Status != JobStatusPending {
		return false
	}
	j.Status = JobStatusDeadLetter
	now := time.Now()
	j.CompletedAt = &now
	j.ErrorMessage = "Job canceled by user"
	return true
}

// Retry resets a failed job for retry.
func (j *Job) Retry() bool {
	if j.Status != JobStatusFailed && j.Status != JobStatusDeadLetter {
		return false
	}
	j.Status = JobStatusPending
	j.RetryCount = 0
	j.NextRetryAt = nil
	j.ErrorMessage = ""
	j.LastErrorAt = nil
	j.StartedAt = nil
	j.CompletedAt = nil
	return true
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusDeadLetter
}

// ReadyForRetry returns true if the job is ready to be retried based on NextRetryAt.
func (j *Job) ReadyForRetry() bool {
	if j.Status != JobStatusFailed {
		return false
	}
	if j.NextRetryAt == nil {
		return true
	}
	return time.Now().After(*j.NextRetryAt)
}

// Duration returns the duration of the job, or zero if not started.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	endTime := time.Now()
	if j.CompletedAt != nil {
		endTime = *j.CompletedAt
	}
	return endTime.Sub(*j.StartedAt)
}

// PayloadJSON returns the payload as JSON bytes for database storage.
func (j *Job) PayloadJSON() ([]byte, error) {
	return json.Marshal(j.Payload)
}

// SetPayload sets the payload from JSON bytes.
func (j *Job) SetPayload(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &j.Payload)
}

// JobQueueSummary provides queue statistics.
type JobQueueSummary struct {
	TotalPending    int             `json:"total_pending"`
	TotalRunning    int             `json:"total_running"`
	TotalCompleted  int             `json:"total_completed"`
	TotalFailed     int             `json:"total_failed"`
	TotalDeadLetter int             `json:"total_dead_letter"`
	ByType          map[JobType]int `json:"by_type,omitempty"`
	OldestPending   *time.Time      `json:"oldest_pending,omitempty"`
}
