package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/models"
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// contextName returns the display name of a learning context, falling back
// to the key itself when the name cannot be resolved.
func (s *Service) contextName(ctx context.Context, key models.LearningContextKey) string {
	var (
		name string
		err  error
	)
	switch {
	case key.IsLearningPath() && s.paths != nil:
		var path *models.LearningPath
		if path, err = s.paths.GetLearningPath(ctx, key); err == nil {
			name = path.DisplayName
		}
	case key.IsCourse() && s.courses != nil:
		name, err = s.courses.CourseName(ctx, key)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("learning_context_key", key.String()).Msg("failed to resolve learning context name")
	}
	if name == "" {
		return key.String()
	}
	return name
}

// GenerateCredentialForUser creates or updates the user's credential for the
// configuration and renders it. On generator failure the row is persisted in
// the error state and a *CredentialGenerationError is returned.
func (s *Service) GenerateCredentialForUser(ctx context.Context, cfg *models.CredentialConfiguration, userID int64, taskID string) (*models.Credential, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}

	c, err := s.startGeneration(ctx, cfg, user, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.render(ctx, cfg, user, c); err != nil {
		return c, err
	}
	return c, nil
}

// startGeneration moves the pair's current row to generating, inserting it
// when the pair has none or only invalidated rows. Overlapping calls for the
// same pair converge on one row.
func (s *Service) startGeneration(ctx context.Context, cfg *models.CredentialConfiguration, user *models.User, taskID string) (*models.Credential, error) {
	candidate := models.NewCredential(user.ID, cfg.ID)
	candidate.StartGeneration(user.FullName(), s.contextName(ctx, cfg.LearningContextKey), taskID)
	candidate.CreatedAt = s.now()
	candidate.UpdatedAt = candidate.CreatedAt

	c, err := s.store.UpsertGeneratingCredential(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("upsert credential of user %d: %w", user.ID, err)
	}
	return c, nil
}

// render runs the generator for a row in the generating state and persists
// the outcome.
func (s *Service) render(ctx context.Context, cfg *models.CredentialConfiguration, user *models.User, c *models.Credential) error {
	url, genErr := s.runGenerator(ctx, cfg, c, false)
	if genErr != nil {
		c.MarkFailed()
		s.metrics.RecordCredential(string(c.Status))
		if err := s.updateCredential(ctx, c); err != nil {
			s.logger.Error().Err(err).Str("credential_uuid", c.UUID.String()).Msg("failed to persist credential error state")
		}
		s.logger.Error().
			Err(genErr).
			Int64("user_id", c.UserID).
			Int64("configuration_id", cfg.ID).
			Str("task_id", c.GenerationTaskID).
			Msg("credential generation failed")
		return &CredentialGenerationError{UserID: c.UserID, ConfigurationID: cfg.ID, Err: genErr}
	}

	c.MarkAvailable(url)
	if err := s.updateCredential(ctx, c); err != nil {
		return err
	}
	s.metrics.RecordCredential(string(c.Status))

	s.logger.Info().
		Str("credential_uuid", c.UUID.String()).
		Int64("user_id", c.UserID).
		Int64("configuration_id", cfg.ID).
		Msg("credential generated")

	if !user.CanReceiveEmail() {
		s.logger.Info().Int64("user_id", user.ID).Msg("skipping credential e-mail for inactive user or user without usable password")
		return nil
	}
	if err := s.SendEmail(ctx, c); err != nil {
		s.logger.Warn().Err(err).Str("credential_uuid", c.UUID.String()).Msg("failed to send credential e-mail")
	}
	return nil
}

func (s *Service) runGenerator(ctx context.Context, cfg *models.CredentialConfiguration, c *models.Credential, invalidate bool) (string, error) {
	if cfg.CredentialType == nil {
		return "", fmt.Errorf("configuration %d has no credential type loaded", cfg.ID)
	}
	name := cfg.CredentialType.GenerationFunc
	fn, err := s.generators.Lookup(name)
	if err != nil {
		return "", fmt.Errorf("generation function: %w", err)
	}

	start := s.now()
	url, err := fn(ctx, c, cfg.Options(), invalidate)
	s.metrics.RecordGenerationDuration(name, time.Since(start).Seconds())
	return url, err
}

func (s *Service) updateCredential(ctx context.Context, c *models.Credential) error {
	c.UpdatedAt = s.now()
	if err := s.store.UpdateCredential(ctx, c); err != nil {
		return fmt.Errorf("update credential %s: %w", c.UUID, err)
	}
	return nil
}

// GenerateCredentials enqueues one generation job per eligible user without a
// credential and returns the number of jobs enqueued.
func (s *Service) GenerateCredentials(ctx context.Context, cfg *models.CredentialConfiguration) (int, error) {
	eligible, err := s.GetEligibleUserIDs(ctx, cfg)
	if err != nil {
		return 0, err
	}
	s.logger.Info().
		Str("learning_context_key", cfg.LearningContextKey.String()).
		Ints64("user_ids", eligible).
		Msg("eligible users")

	filtered, err := s.FilterOutUserIDsWithCredentials(ctx, cfg, eligible)
	if err != nil {
		return 0, err
	}
	s.logger.Info().
		Str("learning_context_key", cfg.LearningContextKey.String()).
		Ints64("user_ids", filtered).
		Msg("eligible users without credentials")

	for i, userID := range filtered {
		if _, err := s.EnqueueUserGeneration(ctx, cfg.ID, userID); err != nil {
			return i, err
		}
	}
	return len(filtered), nil
}

// EnqueueUserGeneration submits a per-user generation job.
func (s *Service) EnqueueUserGeneration(ctx context.Context, configurationID, userID int64) (*models.Job, error) {
	job := models.NewGenerateCredentialForUserJob(configurationID, userID)
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue generation for user %d: %w", userID, err)
	}
	return job, nil
}

// EnqueueConfigurationGeneration submits a per-configuration fan-out job.
func (s *Service) EnqueueConfigurationGeneration(ctx context.Context, configurationID int64) (*models.Job, error) {
	job := models.NewGenerateCredentialsForConfigJob(configurationID)
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue generation for configuration %d: %w", configurationID, err)
	}
	return job, nil
}

// EnqueueAllGeneration submits the global fan-out job.
func (s *Service) EnqueueAllGeneration(ctx context.Context) (*models.Job, error) {
	job := models.NewGenerateAllCredentialsJob()
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue generation for all configurations: %w", err)
	}
	return job, nil
}
