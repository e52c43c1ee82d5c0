package models

import (
	"fmt"
	"time"
)

// TaskGenerateCredentialsForConfig is the task name of configuration-wide generation.
const TaskGenerateCredentialsForConfig = "generate_credentials_for_config"

// DefaultCrontab runs once a day at midnight (seconds field first).
const DefaultCrontab = "0 0 0 * * *"

// PeriodicTask is the recurring schedule record owned by a credential configuration.
type PeriodicTask struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Task      string     `json:"task"`
	Args      []int64    `json:"args"`
	Crontab   string     `json:"crontab"`
	Enabled   bool       `json:"enabled"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewPeriodicTask creates a disabled task with the default schedule.
func NewPeriodicTask(name, task string, args ...int64) *PeriodicTask {
	now := time.Now()
	return &PeriodicTask{
		Name:      name,
		Task:      task,
		Args:      args,
		Crontab:   DefaultCrontab,
		Enabled:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ConfigurationID returns the configuration id carried in the task arguments.
func (t *PeriodicTask) ConfigurationID() (int64, error) {
	if len(t.Args) != 1 {
		return 0, fmt.Errorf("periodic task %d: expected 1 argument, got %d", t.ID, len(t.Args))
	}
	return t.Args[0], nil
}
