package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/google/uuid"
)

func copyJob(j *models.Job) *models.Job {
	cp := *j
	return &cp
}

// CreateJob inserts a job.
func (s *Store) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = copyJob(job)
	return nil
}

// GetJobByID returns a job by id.
func (s *Store) GetJobByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, notFound("job", id)
	}
	return copyJob(j), nil
}

// UpdateJob replaces a job.
func (s *Store) UpdateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return notFound("job", job.ID)
	}
	s.jobs[job.ID] = copyJob(job)
	return nil
}

// GetNextPendingJob claims the highest-priority, oldest pending job.
func (s *Store) GetNextPendingJob(_ context.Context) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next *models.Job
	for _, j := range s.jobs {
		if j.Status != models.JobStatusPending {
			continue
		}
		if next == nil || j.Priority > next.Priority ||
			(j.Priority == next.Priority && j.CreatedAt.Before(next.CreatedAt)) {
			next = j
		}
	}
	if next == nil {
		return nil, nil
	}
	next.Start()
	return copyJob(next), nil
}

// ListJobsReadyForRetry returns failed jobs whose backoff has elapsed.
func (s *Store) ListJobsReadyForRetry(_ context.Context, limit int) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Job
	for _, j := range s.jobs {
		if j.ReadyForRetry() {
			out = append(out, copyJob(j))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListJobs returns every job, newest first.
func (s *Store) ListJobs(_ context.Context) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, copyJob(j))
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}

// GetJobQueueSummary counts jobs by status and type.
func (s *Store) GetJobQueueSummary(_ context.Context) (*models.JobQueueSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary := &models.JobQueueSummary{ByType: make(map[models.JobType]int)}
	for _, j := range s.jobs {
		switch j.Status {
		case models.JobStatusPending:
			summary.TotalPending++
			if summary.OldestPending == nil || j.CreatedAt.Before(*summary.OldestPending) {
				at := j.CreatedAt
				summary.OldestPending = &at
			}
		case models.JobStatusRunning:
			summary.TotalRunning++
		case models.JobStatusCompleted:
			summary.TotalCompleted++
		case models.JobStatusFailed:
			summary.TotalFailed++
		case models.JobStatusDeadLetter:
			summary.TotalDeadLetter++
		}
		if !j.IsTerminal() {
			summary.ByType[j.JobType]++
		}
	}
	return summary, nil
}

// CleanupOldJobs deletes terminal jobs older than the retention period.
func (s *Store) CleanupOldJobs(_ context.Context, retentionDays int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	var deleted int64
	for id, j := range s.jobs {
		if j.IsTerminal() && j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			deleted++
		}
	}
	return deleted, nil
}
