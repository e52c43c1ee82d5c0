package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/config"
	"github.com/MacJediWizard/learning-credentials/internal/models"
)

// ImportResult counts the records touched by ImportCatalog.
type ImportResult struct {
	TypesCreated   int
	TypesUpdated   int
	ConfigsCreated int
	ConfigsUpdated int
}

// ListCredentialTypes returns every credential type.
func (s *Service) ListCredentialTypes(ctx context.Context) ([]*models.CredentialType, error) {
	types, err := s.store.ListCredentialTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credential types: %w", err)
	}
	return types, nil
}

// ImportCatalog creates or updates the credential types and configurations
// declared in c. Types are matched by name and configurations by
// (learning context key, type). Existing records keep their ids.
func (s *Service) ImportCatalog(ctx context.Context, c *config.Catalog) (ImportResult, error) {
	var res ImportResult
	if err := c.Validate(); err != nil {
		return res, err
	}

	types := make(map[string]*models.CredentialType, len(c.CredentialTypes))
	for _, entry := range c.CredentialTypes {
		t, err := s.store.GetCredentialTypeByName(ctx, entry.Name)
		switch {
		case errors.Is(err, ErrNotFound):
			t = entry.Model()
			res.TypesCreated++
		case err != nil:
			return res, fmt.Errorf("get credential type %q: %w", entry.Name, err)
		default:
			t.RetrievalFunc = entry.RetrievalFunc
			t.GenerationFunc = entry.GenerationFunc
			t.CustomOptions = entry.CustomOptions
			res.TypesUpdated++
		}
		if err := s.SaveCredentialType(ctx, t); err != nil {
			return res, fmt.Errorf("credential type %q: %w", entry.Name, err)
		}
		types[t.Name] = t
	}

	for _, entry := range c.Configurations {
		key := models.LearningContextKey(entry.LearningContextKey)
		t, ok := types[entry.CredentialType]
		if !ok {
			var err error
			t, err = s.store.GetCredentialTypeByName(ctx, entry.CredentialType)
			if err != nil {
				return res, fmt.Errorf("configuration %s: credential type %q: %w", key, entry.CredentialType, err)
			}
			types[t.Name] = t
		}

		cfg, err := s.store.GetConfigurationByContextAndType(ctx, key, t.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			cfg = models.NewCredentialConfiguration(key, t, entry.CustomOptions)
			res.ConfigsCreated++
		case err != nil:
			return res, fmt.Errorf("get configuration %s: %w", key, err)
		default:
			cfg.CustomOptions = entry.CustomOptions
			res.ConfigsUpdated++
		}
		cfg.Enabled = entry.Enabled
		if err := s.SaveConfiguration(ctx, cfg); err != nil {
			return res, fmt.Errorf("configuration %s: %w", key, err)
		}
	}

	s.logger.Info().
		Int("types_created", res.TypesCreated).
		Int("types_updated", res.TypesUpdated).
		Int("configurations_created", res.ConfigsCreated).
		Int("configurations_updated", res.ConfigsUpdated).
		Msg("catalog imported")
	return res, nil
}

// ExportCatalog returns the persisted types and configurations as a catalog.
func (s *Service) ExportCatalog(ctx context.Context) (*config.Catalog, error) {
	types, err := s.ListCredentialTypes(ctx)
	if err != nil {
		return nil, err
	}
	configs, err := s.ListConfigurations(ctx)
	if err != nil {
		return nil, err
	}
	return config.NewCatalog(types, configs), nil
}
