package models

import (
	"fmt"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/options"
)

// CredentialConfiguration binds a learning context to a credential type.
type CredentialConfiguration struct {
	ID                 int64              `json:"id"`
	LearningContextKey LearningContextKey `json:"learning_context_key"`
	CredentialTypeID   int64              `json:"credential_type_id"`
	PeriodicTaskID     int64              `json:"periodic_task_id"`
	CustomOptions      map[string]any     `json:"custom_options"`
	Enabled            bool               `json:"enabled"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`

	// CredentialType is populated by the store on reads.
	CredentialType *CredentialType `json:"credential_type,omitempty"`
}

// NewCredentialConfiguration creates a disabled configuration.
func NewCredentialConfiguration(key LearningContextKey, credentialType *CredentialType, opts map[string]any) *CredentialConfiguration {
	now := time.Now()
	if opts == nil {
		opts = map[string]any{}
	}
	return &CredentialConfiguration{
		LearningContextKey: key,
		CredentialTypeID:   credentialType.ID,
		CredentialType:     credentialType,
		CustomOptions:      opts,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// String returns "<type name> in <context key>", also used as the periodic task name.
func (c *CredentialConfiguration) String() string {
	typeName := ""
	if c.CredentialType != nil {
		typeName = c.CredentialType.Name
	}
	return fmt.Sprintf("%s in %s", typeName, c.LearningContextKey)
}

// IsPersisted reports whether the configuration has been saved.
func (c *CredentialConfiguration) IsPersisted() bool {
	return c.ID != 0
}

// Options returns the type options deep-merged with the configuration options.
func (c *CredentialConfiguration) Options() map[string]any {
	var base map[string]any
	if c.CredentialType != nil {
		base = c.CredentialType.CustomOptions
	}
	return options.Merge(base, c.CustomOptions)
}
