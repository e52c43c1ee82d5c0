package credentials

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/eligibility"
	"github.com/MacJediWizard/learning-credentials/internal/models"
)

func (s *Service) retrieve(ctx context.Context, cfg *models.CredentialConfiguration, userID *int64) (eligibility.Results, error) {
	if cfg.CredentialType == nil {
		return nil, fmt.Errorf("configuration %d has no credential type loaded", cfg.ID)
	}
	fn, err := s.retrievers.Lookup(cfg.CredentialType.RetrievalFunc)
	if err != nil {
		return nil, fmt.Errorf("retrieval function: %w", err)
	}

	start := s.now()
	results, err := fn(ctx, cfg.LearningContextKey, cfg.Options(), userID)
	s.metrics.RecordEligibilityDuration(cfg.CredentialType.RetrievalFunc, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("retrieve eligibility for %s: %w", cfg, err)
	}
	return results, nil
}

// GetEligibleUserIDs returns the users eligible for the configuration's credential.
func (s *Service) GetEligibleUserIDs(ctx context.Context, cfg *models.CredentialConfiguration) ([]int64, error) {
	results, err := s.retrieve(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}
	ids := results.EligibleUserIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// GetUserEligibilityDetails returns the eligibility detail of one user.
// The detail is empty when the retrieval function yields nothing for the user.
func (s *Service) GetUserEligibilityDetails(ctx context.Context, cfg *models.CredentialConfiguration, userID int64) (eligibility.Detail, error) {
	results, err := s.retrieve(ctx, cfg, &userID)
	if err != nil {
		return nil, err
	}
	if d, ok := results[userID]; ok {
		return d, nil
	}
	return eligibility.Detail{}, nil
}

// FilterOutUserIDsWithCredentials returns the ids that hold no credential for
// the configuration. Rows in the error status do not count.
func (s *Service) FilterOutUserIDsWithCredentials(ctx context.Context, cfg *models.CredentialConfiguration, userIDs []int64) ([]int64, error) {
	existing, err := s.store.ListCredentialsByConfiguration(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("list credentials for configuration %d: %w", cfg.ID, err)
	}

	credentialed := make(map[int64]struct{}, len(existing))
	for _, c := range existing {
		if c.HasCredential() {
			credentialed[c.UserID] = struct{}{}
		}
	}

	seen := make(map[int64]struct{}, len(userIDs))
	filtered := make([]int64, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := credentialed[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		filtered = append(filtered, id)
	}
	return filtered, nil
}

// ExistingCredential returns the user's most recent non-error credential for
// the configuration, or nil.
func (s *Service) ExistingCredential(ctx context.Context, cfg *models.CredentialConfiguration, userID int64) (*models.Credential, error) {
	all, err := s.store.ListCredentialsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list credentials for user %d: %w", userID, err)
	}
	var latest *models.Credential
	for _, c := range all {
		if c.ConfigurationID != cfg.ID || !c.HasCredential() {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	return latest, nil
}
