package credentials

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/jobs"
	"github.com/MacJediWizard/learning-credentials/internal/models"
)

// loadConfiguration resolves a job's configuration. A deleted configuration
// will not reappear, so retrying the job is pointless.
func (s *Service) loadConfiguration(ctx context.Context, job *models.Job) (*models.CredentialConfiguration, error) {
	cfg, err := s.GetConfiguration(ctx, job.Payload.ConfigurationID)
	if isNotFound(err) {
		return nil, jobs.Permanent(err)
	}
	return cfg, err
}

// GenerateForUserHandler runs per-user generation jobs.
type GenerateForUserHandler struct {
	svc *Service
}

// Handle loads the configuration and generates the user's credential.
// The job id is recorded as the credential's generation task id.
func (h *GenerateForUserHandler) Handle(ctx context.Context, job *models.Job) (map[string]interface{}, error) {
	cfg, err := h.svc.loadConfiguration(ctx, job)
	if err != nil {
		return nil, err
	}
	taskID := job.Payload.TaskID
	if taskID == "" {
		taskID = job.ID.String()
	}
	c, err := h.svc.GenerateCredentialForUser(ctx, cfg, job.Payload.UserID, taskID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"credential_uuid": c.UUID.String(),
		"status":          string(c.Status),
	}, nil
}

// GenerateForConfigHandler runs per-configuration fan-out jobs.
type GenerateForConfigHandler struct {
	svc *Service
}

// Handle enqueues one per-user job for every eligible user without a credential.
func (h *GenerateForConfigHandler) Handle(ctx context.Context, job *models.Job) (map[string]interface{}, error) {
	cfg, err := h.svc.loadConfiguration(ctx, job)
	if err != nil {
		return nil, err
	}
	n, err := h.svc.GenerateCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"enqueued": n}, nil
}

// GenerateAllHandler runs the global fan-out job.
type GenerateAllHandler struct {
	svc *Service
}

// Handle enqueues one per-configuration job for every enabled configuration.
func (h *GenerateAllHandler) Handle(ctx context.Context, _ *models.Job) (map[string]interface{}, error) {
	configs, err := h.svc.GetEnabledConfigurations(ctx)
	if err != nil {
		return nil, err
	}
	for i, cfg := range configs {
		if _, err := h.svc.EnqueueConfigurationGeneration(ctx, cfg.ID); err != nil {
			return map[string]interface{}{"enqueued": i}, fmt.Errorf("fan out: %w", err)
		}
	}
	return map[string]interface{}{"enqueued": len(configs)}, nil
}

// Handlers returns the generation job handlers keyed by job type.
func (s *Service) Handlers() map[models.JobType]jobs.JobHandler {
	return map[models.JobType]jobs.JobHandler{
		models.JobTypeGenerateCredentialForUser:    &GenerateForUserHandler{svc: s},
		models.JobTypeGenerateCredentialsForConfig: &GenerateForConfigHandler{svc: s},
		models.JobTypeGenerateAllCredentials:       &GenerateAllHandler{svc: s},
	}
}

// RegisterHandlers registers the generation job handlers on q.
func (s *Service) RegisterHandlers(q *jobs.Queue) {
	for jobType, h := range s.Handlers() {
		q.RegisterHandler(jobType, h)
	}
}
