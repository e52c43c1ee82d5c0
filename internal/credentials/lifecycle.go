package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/google/uuid"
)

// EmailCredentialGenerated is the template sent when a credential becomes available.
const EmailCredentialGenerated = "certificate_generated"

// GetCredential returns a credential by its primary identifier.
func (s *Service) GetCredential(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	c, err := s.store.GetCredential(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get credential %s: %w", id, err)
	}
	return c, nil
}

// GetCredentialByVerifyUUID returns a credential by its public verification identifier.
func (s *Service) GetCredentialByVerifyUUID(ctx context.Context, verifyUUID uuid.UUID) (*models.Credential, error) {
	c, err := s.store.GetCredentialByVerifyUUID(ctx, verifyUUID)
	if err != nil {
		return nil, fmt.Errorf("get credential by verify uuid: %w", err)
	}
	return c, nil
}

// SaveCredential persists a credential. When its invalidation reason changed
// to a non-empty value on an available or failed row, the generator releases
// the stored document and the row becomes invalidated. Rows still generating
// cannot be invalidated.
func (s *Service) SaveCredential(ctx context.Context, c *models.Credential) error {
	prev, err := s.store.GetCredential(ctx, c.UUID)
	if err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("get credential %s: %w", c.UUID, err)
		}
		c.UpdatedAt = s.now()
		if err := s.store.CreateCredential(ctx, c); err != nil {
			return fmt.Errorf("create credential: %w", err)
		}
		return nil
	}

	if prev.Status == models.CredentialStatusGenerating && c.InvalidationReason != prev.InvalidationReason {
		return fmt.Errorf("invalidate credential %s: %w", c.UUID, ErrCredentialGenerating)
	}
	if c.NeedsInvalidation(prev.InvalidationReason) {
		cfg, err := s.store.GetConfiguration(ctx, c.ConfigurationID)
		if err != nil {
			return fmt.Errorf("get configuration %d: %w", c.ConfigurationID, err)
		}
		url, err := s.runGenerator(ctx, cfg, c, true)
		if err != nil {
			return fmt.Errorf("invalidate credential %s: %w", c.UUID, err)
		}
		c.Invalidate(url, s.now())
		s.metrics.RecordCredential(string(c.Status))
		s.logger.Info().
			Str("credential_uuid", c.UUID.String()).
			Int64("user_id", c.UserID).
			Msg("credential invalidated")
	}

	return s.updateCredential(ctx, c)
}

// InvalidateCredential appends reason to the credential and saves it.
func (s *Service) InvalidateCredential(ctx context.Context, id uuid.UUID, reason string) (*models.Credential, error) {
	c, err := s.GetCredential(ctx, id)
	if err != nil {
		return nil, err
	}
	c.AppendInvalidationReason(reason)
	if c.InvalidationReason == "" {
		return nil, errors.New("invalidation reason is required")
	}
	if err := s.SaveCredential(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Reissue invalidates c with reason (DefaultReissueReason when empty) and
// generates a fresh credential for the same user and configuration.
func (s *Service) Reissue(ctx context.Context, c *models.Credential, reason string) (*models.Credential, error) {
	if reason == "" {
		reason = models.DefaultReissueReason
	}

	cfg, err := s.store.GetConfiguration(ctx, c.ConfigurationID)
	if err != nil {
		return nil, fmt.Errorf("get configuration %d: %w", c.ConfigurationID, err)
	}
	user, err := s.store.GetUserByID(ctx, c.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", c.UserID, err)
	}

	c.AppendInvalidationReason(reason)
	if err := s.SaveCredential(ctx, c); err != nil {
		return nil, err
	}

	fresh, err := s.startGeneration(ctx, cfg, user, "")
	if err != nil {
		return nil, err
	}
	if err := s.render(ctx, cfg, user, fresh); err != nil {
		return fresh, err
	}

	s.logger.Info().
		Str("credential_uuid", c.UUID.String()).
		Str("reissued_uuid", fresh.UUID.String()).
		Msg("credential reissued")
	return fresh, nil
}

// SendEmail notifies the owner that the credential is available. Values are
// read from the row at call time.
func (s *Service) SendEmail(ctx context.Context, c *models.Credential) error {
	if s.mailer == nil {
		return nil
	}
	user, err := s.store.GetUserByID(ctx, c.UserID)
	if err != nil {
		return fmt.Errorf("get user %d: %w", c.UserID, err)
	}
	data := map[string]string{
		"certificate_link": c.DownloadURL,
		"course_name":      c.LearningContextName,
	}
	if err := s.mailer.SendTemplate(ctx, EmailCredentialGenerated, user, data); err != nil {
		return fmt.Errorf("send %s e-mail: %w", EmailCredentialGenerated, err)
	}
	return nil
}

// UserCredential is a credential with its configuration.
type UserCredential struct {
	Credential    *models.Credential
	Configuration *models.CredentialConfiguration
}

// ListUserCredentials returns the user's credentials, newest first, optionally
// limited to one learning context.
func (s *Service) ListUserCredentials(ctx context.Context, userID int64, key *models.LearningContextKey) ([]UserCredential, error) {
	all, err := s.store.ListCredentialsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list credentials for user %d: %w", userID, err)
	}

	configs := make(map[int64]*models.CredentialConfiguration)
	out := make([]UserCredential, 0, len(all))
	for _, c := range all {
		cfg, ok := configs[c.ConfigurationID]
		if !ok {
			cfg, err = s.store.GetConfiguration(ctx, c.ConfigurationID)
			if err != nil {
				return nil, fmt.Errorf("get configuration %d: %w", c.ConfigurationID, err)
			}
			configs[c.ConfigurationID] = cfg
		}
		if key != nil && cfg.LearningContextKey != *key {
			continue
		}
		out = append(out, UserCredential{Credential: c, Configuration: cfg})
	}
	return out, nil
}

// GetUserByUsername looks up a user.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return u, nil
}
