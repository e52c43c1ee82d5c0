// Package scheduler fires the periodic tasks of credential configurations.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Store defines the periodic task persistence used by the scheduler.
type Store interface {
	ListEnabledPeriodicTasks(ctx context.Context) ([]*models.PeriodicTask, error)
	MarkPeriodicTaskRun(ctx context.Context, id int64, at time.Time) error
}

// Enqueuer submits background jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *models.Job) error
}

// Config holds configuration for the scheduler.
type Config struct {
	RefreshInterval time.Duration
	// GlobalCrontab, when set, enqueues generation for every enabled
	// configuration on that schedule.
	GlobalCrontab string
}

// DefaultConfig returns default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		RefreshInterval: time.Minute,
	}
}

type entry struct {
	id      cron.EntryID
	crontab string
}

// Scheduler registers one cron entry per enabled periodic task.
type Scheduler struct {
	store   Store
	queue   Enqueuer
	config  Config
	cron    *cron.Cron
	logger  zerolog.Logger
	now     func() time.Time
	mu      sync.Mutex
	entries map[int64]entry
	running bool
	cancel  context.CancelFunc
}

// New creates a new scheduler.
func New(store Store, queue Enqueuer, config Config, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:   store,
		queue:   queue,
		config:  config,
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger.With().Str("component", "scheduler").Logger(),
		now:     time.Now,
		entries: make(map[int64]entry),
	}
}

// Start loads the enabled tasks and starts firing them.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info().Msg("starting scheduler")

	if s.config.GlobalCrontab != "" {
		if _, err := s.cron.AddFunc(s.config.GlobalCrontab, func() { s.enqueueAll(ctx) }); err != nil {
			return fmt.Errorf("invalid global crontab %q: %w", s.config.GlobalCrontab, err)
		}
	}

	if err := s.Reload(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to load initial periodic tasks")
	}

	s.cron.Start()
	if s.config.RefreshInterval > 0 {
		go s.refreshLoop(ctx)
	}
	return nil
}

// Stop stops the scheduler. The returned context is done when running
// entries have finished.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	s.running = false
	s.cancel()
	s.logger.Info().Msg("stopping scheduler")
	return s.cron.Stop()
}

// Reload synchronizes cron entries with the enabled periodic tasks.
func (s *Scheduler) Reload(ctx context.Context) error {
	tasks, err := s.store.ListEnabledPeriodicTasks(ctx)
	if err != nil {
		return fmt.Errorf("list enabled periodic tasks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]bool, len(tasks))
	for _, task := range tasks {
		if task.Task != models.TaskGenerateCredentialsForConfig {
			s.logger.Warn().Int64("task_id", task.ID).Str("task", task.Task).Msg("skipping periodic task with unknown task name")
			continue
		}
		seen[task.ID] = true

		if e, ok := s.entries[task.ID]; ok {
			if e.crontab == task.Crontab {
				continue
			}
			s.cron.Remove(e.id)
			delete(s.entries, task.ID)
		}

		if err := s.addTask(ctx, task); err != nil {
			s.logger.Error().Err(err).Int64("task_id", task.ID).Msg("failed to add periodic task")
		}
	}

	for id, e := range s.entries {
		if !seen[id] {
			s.cron.Remove(e.id)
			delete(s.entries, id)
		}
	}

	s.logger.Debug().Int("active_tasks", len(s.entries)).Msg("periodic tasks reloaded")
	return nil
}

// Entries returns the number of registered periodic tasks.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Scheduler) addTask(ctx context.Context, task *models.PeriodicTask) error {
	configurationID, err := task.ConfigurationID()
	if err != nil {
		return err
	}
	crontab := task.Crontab
	if crontab == "" {
		crontab = models.DefaultCrontab
	}

	taskID := task.ID
	id, err := s.cron.AddFunc(crontab, func() {
		s.RunTask(ctx, taskID, configurationID)
	})
	if err != nil {
		return fmt.Errorf("invalid crontab %q: %w", crontab, err)
	}
	s.entries[task.ID] = entry{id: id, crontab: task.Crontab}

	s.logger.Debug().
		Int64("task_id", task.ID).
		Int64("configuration_id", configurationID).
		Str("cron", crontab).
		Msg("added periodic task")
	return nil
}

// RunTask enqueues generation for one configuration and records the run.
func (s *Scheduler) RunTask(ctx context.Context, taskID, configurationID int64) {
	logger := s.logger.With().Int64("task_id", taskID).Int64("configuration_id", configurationID).Logger()

	job := models.NewGenerateCredentialsForConfigJob(configurationID)
	if err := s.queue.Enqueue(ctx, job); err != nil {
		logger.Error().Err(err).Msg("failed to enqueue scheduled generation")
		return
	}
	if err := s.store.MarkPeriodicTaskRun(ctx, taskID, s.now()); err != nil {
		logger.Warn().Err(err).Msg("failed to record periodic task run")
	}
	logger.Info().Str("job_id", job.ID.String()).Msg("scheduled generation enqueued")
}

func (s *Scheduler) enqueueAll(ctx context.Context) {
	job := models.NewGenerateAllCredentialsJob()
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Error().Err(err).Msg("failed to enqueue global generation")
		return
	}
	s.logger.Info().Str("job_id", job.ID.String()).Msg("global generation enqueued")
}

func (s *Scheduler) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Reload(ctx); err != nil {
				s.logger.Error().Err(err).Msg("failed to refresh periodic tasks")
			}
		}
	}
}
