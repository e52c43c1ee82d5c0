package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CredentialStatus is the lifecycle state of a credential.
type CredentialStatus string

const (
	// CredentialStatusGenerating is the initial state while the document is produced.
	CredentialStatusGenerating CredentialStatus = "generating"
	// CredentialStatusAvailable means the document can be downloaded.
	CredentialStatusAvailable CredentialStatus = "available"
	// CredentialStatusError means generation failed; the row can be regenerated.
	CredentialStatusError CredentialStatus = "error"
	// CredentialStatusInvalidated is terminal.
	CredentialStatusInvalidated CredentialStatus = "invalidated"
)

// DefaultReissueReason is appended to the invalidation reason of reissued credentials.
const DefaultReissueReason = "Reissued"

// Credential is one issued or attempted credential for a (user, configuration) pair.
type Credential struct {
	UUID                uuid.UUID        `json:"uuid"`
	VerifyUUID          uuid.UUID        `json:"verify_uuid"`
	UserID              int64            `json:"user_id"`
	ConfigurationID     int64            `json:"configuration_id"`
	UserFullName        string           `json:"user_full_name"`
	LearningContextName string           `json:"learning_context_name"`
	Status              CredentialStatus `json:"status"`
	DownloadURL         string           `json:"download_url"`
	LegacyID            *int64           `json:"legacy_id,omitempty"`
	GenerationTaskID    string           `json:"generation_task_id"`
	InvalidatedAt       *time.Time       `json:"invalidated_at,omitempty"`
	InvalidationReason  string           `json:"invalidation_reason"`
	CreatedAt           time.Time        `json:"created"`
	UpdatedAt           time.Time        `json:"modified"`
}

// NewCredential creates a credential in the generating state.
func NewCredential(userID, configurationID int64) *Credential {
	now := time.Now()
	return &Credential{
		UUID:            uuid.New(),
		VerifyUUID:      uuid.New(),
		UserID:          userID,
		ConfigurationID: configurationID,
		Status:          CredentialStatusGenerating,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// HasCredential reports whether the row counts as an issued credential.
// Every status except error does.
func (c *Credential) HasCredential() bool {
	return c.Status != CredentialStatusError
}

// IsInvalidated reports whether the credential reached the terminal state.
func (c *Credential) IsInvalidated() bool {
	return c.Status == CredentialStatusInvalidated
}

// StartGeneration resets the row to generating with fresh snapshot fields.
func (c *Credential) StartGeneration(fullName, contextName, taskID string) {
	c.UserFullName = fullName
	c.LearningContextName = contextName
	c.GenerationTaskID = taskID
	c.Status = CredentialStatusGenerating
}

// MarkAvailable records a successful generation.
func (c *Credential) MarkAvailable(downloadURL string) {
	c.Status = CredentialStatusAvailable
	c.DownloadURL = downloadURL
}

// MarkFailed records a failed generation. The task id is kept for correlation.
func (c *Credential) MarkFailed() {
	c.Status = CredentialStatusError
	c.DownloadURL = ""
}

// NeedsInvalidation reports whether saving the row must run the invalidation
// side effects: the reason changed to a non-empty value on an available or
// failed row.
func (c *Credential) NeedsInvalidation(previousReason string) bool {
	if c.InvalidationReason == "" || c.InvalidationReason == previousReason {
		return false
	}
	return c.Status == CredentialStatusAvailable || c.Status == CredentialStatusError
}

// Invalidate moves the credential to the invalidated state.
func (c *Credential) Invalidate(downloadURL string, at time.Time) {
	c.Status = CredentialStatusInvalidated
	c.DownloadURL = downloadURL
	c.InvalidatedAt = &at
}

// AppendInvalidationReason adds reason on a new line after any existing reason.
func (c *Credential) AppendInvalidationReason(reason string) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	if c.InvalidationReason == "" {
		c.InvalidationReason = reason
		return
	}
	c.InvalidationReason = c.InvalidationReason + "\n" + reason
}
