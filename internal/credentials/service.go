// Package credentials manages credential types, configurations, issued
// credentials and template assets, and orchestrates their generation.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/eligibility"
	"github.com/MacJediWizard/learning-credentials/internal/generators"
	"github.com/MacJediWizard/learning-credentials/internal/metrics"
	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/MacJediWizard/learning-credentials/internal/storage"
	"github.com/rs/zerolog"
)

// Deps groups the collaborators of a Service.
type Deps struct {
	Store       Store
	Retrievers  *eligibility.Registry
	Generators  *generators.Registry
	Queue       Enqueuer
	Mailer      Mailer
	Courses     ContextNamer
	Paths       LearningPathStore
	ObjectStore storage.ObjectStore
	Metrics     *metrics.PrometheusMetrics
}

// Service implements credential configuration and lifecycle operations.
type Service struct {
	store      Store
	retrievers *eligibility.Registry
	generators *generators.Registry
	queue      Enqueuer
	mailer     Mailer
	courses    ContextNamer
	paths      LearningPathStore
	objects    storage.ObjectStore
	metrics    *metrics.PrometheusMetrics
	now        func() time.Time
	logger     zerolog.Logger
}

// NewService creates a new Service.
func NewService(deps Deps, logger zerolog.Logger) *Service {
	return &Service{
		store:      deps.Store,
		retrievers: deps.Retrievers,
		generators: deps.Generators,
		queue:      deps.Queue,
		mailer:     deps.Mailer,
		courses:    deps.Courses,
		paths:      deps.Paths,
		objects:    deps.ObjectStore,
		metrics:    deps.Metrics,
		now:        time.Now,
		logger:     logger.With().Str("component", "credentials").Logger(),
	}
}

// SaveCredentialType validates the referenced functions and persists the type.
// Blank function names are accepted; configurations using them fail at run time.
func (s *Service) SaveCredentialType(ctx context.Context, t *models.CredentialType) error {
	if t.Name == "" {
		return errors.New("credential type name is required")
	}
	if t.RetrievalFunc != "" {
		if err := s.retrievers.Validate(t.RetrievalFunc); err != nil {
			return fmt.Errorf("retrieval_func: %w", err)
		}
	}
	if t.GenerationFunc != "" {
		if err := s.generators.Validate(t.GenerationFunc); err != nil {
			return fmt.Errorf("generation_func: %w", err)
		}
	}
	if t.CustomOptions == nil {
		t.CustomOptions = map[string]any{}
	}

	t.UpdatedAt = s.now()
	if t.ID == 0 {
		t.CreatedAt = t.UpdatedAt
		if err := s.store.CreateCredentialType(ctx, t); err != nil {
			return fmt.Errorf("create credential type: %w", err)
		}
		return nil
	}
	if err := s.store.UpdateCredentialType(ctx, t); err != nil {
		return fmt.Errorf("update credential type: %w", err)
	}
	return nil
}

// GetConfiguration returns a configuration with its credential type.
func (s *Service) GetConfiguration(ctx context.Context, id int64) (*models.CredentialConfiguration, error) {
	cfg, err := s.store.GetConfiguration(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get configuration %d: %w", id, err)
	}
	return cfg, nil
}

// ListConfigurations returns every configuration.
func (s *Service) ListConfigurations(ctx context.Context) ([]*models.CredentialConfiguration, error) {
	configs, err := s.store.ListConfigurations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	return configs, nil
}

// ListConfigurationsByContext returns the configurations of a learning context.
func (s *Service) ListConfigurationsByContext(ctx context.Context, key models.LearningContextKey) ([]*models.CredentialConfiguration, error) {
	configs, err := s.store.ListConfigurationsByContext(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list configurations for %s: %w", key, err)
	}
	return configs, nil
}

// GetConfigurationByContextAndType returns the configuration of a type in a context.
func (s *Service) GetConfigurationByContextAndType(ctx context.Context, key models.LearningContextKey, typeID int64) (*models.CredentialConfiguration, error) {
	cfg, err := s.store.GetConfigurationByContextAndType(ctx, key, typeID)
	if err != nil {
		return nil, fmt.Errorf("get configuration for %s: %w", key, err)
	}
	return cfg, nil
}

// GetEnabledConfigurations returns the configurations whose schedule is active.
func (s *Service) GetEnabledConfigurations(ctx context.Context) ([]*models.CredentialConfiguration, error) {
	configs, err := s.store.ListEnabledConfigurations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled configurations: %w", err)
	}
	return configs, nil
}

// SaveConfiguration validates and persists a configuration and keeps its
// periodic task in sync. A new configuration gets a disabled task.
func (s *Service) SaveConfiguration(ctx context.Context, cfg *models.CredentialConfiguration) error {
	if err := cfg.LearningContextKey.Validate(); err != nil {
		return err
	}
	credentialType, err := s.store.GetCredentialType(ctx, cfg.CredentialTypeID)
	if err != nil {
		return fmt.Errorf("get credential type %d: %w", cfg.CredentialTypeID, err)
	}
	cfg.CredentialType = credentialType
	if cfg.CustomOptions == nil {
		cfg.CustomOptions = map[string]any{}
	}
	cfg.UpdatedAt = s.now()

	if !cfg.IsPersisted() {
		return s.createConfiguration(ctx, cfg)
	}

	prev, err := s.store.GetConfiguration(ctx, cfg.ID)
	if err != nil {
		return fmt.Errorf("get configuration %d: %w", cfg.ID, err)
	}
	if prev.LearningContextKey != cfg.LearningContextKey || prev.CredentialTypeID != cfg.CredentialTypeID {
		return ErrReadOnlyField
	}
	cfg.PeriodicTaskID = prev.PeriodicTaskID
	cfg.CreatedAt = prev.CreatedAt

	if err := s.store.UpdateConfiguration(ctx, cfg); err != nil {
		return fmt.Errorf("update configuration %d: %w", cfg.ID, err)
	}

	task, err := s.store.GetPeriodicTask(ctx, cfg.PeriodicTaskID)
	if err != nil {
		return fmt.Errorf("get periodic task %d: %w", cfg.PeriodicTaskID, err)
	}
	s.syncTask(task, cfg)
	if err := s.store.UpdatePeriodicTask(ctx, task); err != nil {
		return fmt.Errorf("update periodic task %d: %w", task.ID, err)
	}
	return nil
}

func (s *Service) createConfiguration(ctx context.Context, cfg *models.CredentialConfiguration) error {
	if _, err := s.store.GetConfigurationByContextAndType(ctx, cfg.LearningContextKey, cfg.CredentialTypeID); err == nil {
		return ErrConfigurationExists
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("check existing configuration: %w", err)
	}

	task := models.NewPeriodicTask(cfg.String(), models.TaskGenerateCredentialsForConfig)
	if err := s.store.CreatePeriodicTask(ctx, task); err != nil {
		return fmt.Errorf("create periodic task: %w", err)
	}

	cfg.PeriodicTaskID = task.ID
	cfg.CreatedAt = cfg.UpdatedAt
	if err := s.store.CreateConfiguration(ctx, cfg); err != nil {
		return fmt.Errorf("create configuration: %w", err)
	}

	s.syncTask(task, cfg)
	if err := s.store.UpdatePeriodicTask(ctx, task); err != nil {
		return fmt.Errorf("update periodic task %d: %w", task.ID, err)
	}

	s.logger.Info().
		Int64("configuration_id", cfg.ID).
		Int64("periodic_task_id", task.ID).
		Str("configuration", cfg.String()).
		Msg("credential configuration created")
	return nil
}

func (s *Service) syncTask(task *models.PeriodicTask, cfg *models.CredentialConfiguration) {
	task.Name = cfg.String()
	task.Task = models.TaskGenerateCredentialsForConfig
	task.Args = []int64{cfg.ID}
	task.Enabled = cfg.Enabled
	task.UpdatedAt = s.now()
}

// SetConfigurationEnabled toggles the schedule of a configuration.
func (s *Service) SetConfigurationEnabled(ctx context.Context, id int64, enabled bool) (*models.CredentialConfiguration, error) {
	cfg, err := s.store.GetConfiguration(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get configuration %d: %w", id, err)
	}
	cfg.Enabled = enabled
	if err := s.SaveConfiguration(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

type deletingKey struct{}

// deleting returns the configuration id being deleted higher up the call chain.
func deleting(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(deletingKey{}).(int64)
	return id, ok
}

// DeleteConfiguration deletes a configuration and its periodic task.
// It fails with ErrConfigurationInUse while credentials reference it.
func (s *Service) DeleteConfiguration(ctx context.Context, id int64) error {
	cfg, err := s.store.GetConfiguration(ctx, id)
	if err != nil {
		return fmt.Errorf("get configuration %d: %w", id, err)
	}

	if err := s.store.DeleteConfiguration(ctx, id); err != nil {
		return fmt.Errorf("delete configuration %d: %w", id, err)
	}

	ctx = context.WithValue(ctx, deletingKey{}, id)
	if err := s.DeletePeriodicTask(ctx, cfg.PeriodicTaskID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	s.logger.Info().Int64("configuration_id", id).Msg("credential configuration deleted")
	return nil
}

// DeletePeriodicTask deletes a periodic task together with the configuration
// that owns it.
func (s *Service) DeletePeriodicTask(ctx context.Context, taskID int64) error {
	if _, ok := deleting(ctx); !ok {
		cfg, err := s.store.GetConfigurationByPeriodicTask(ctx, taskID)
		switch {
		case err == nil:
			return s.DeleteConfiguration(ctx, cfg.ID)
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("get configuration for periodic task %d: %w", taskID, err)
		}
	}

	if err := s.store.DeletePeriodicTask(ctx, taskID); err != nil {
		return fmt.Errorf("delete periodic task %d: %w", taskID, err)
	}
	return nil
}
