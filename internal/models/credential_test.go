package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewCredential(t *testing.T) {
	c := NewCredential(7, 3)

	if c.UUID == uuid.Nil || c.VerifyUUID == uuid.Nil {
		t.Fatal("expected both identifiers to be set")
	}
	if c.UUID == c.VerifyUUID {
		t.Error("expected verification id to differ from the primary id")
	}
	if c.Status != CredentialStatusGenerating {
		t.Errorf("expected status %s, got %s", CredentialStatusGenerating, c.Status)
	}
	if c.UserID != 7 || c.ConfigurationID != 3 {
		t.Errorf("unexpected owner: user=%d config=%d", c.UserID, c.ConfigurationID)
	}
}

func TestCredential_HasCredential(t *testing.T) {
	tests := []struct {
		status CredentialStatus
		want   bool
	}{
		{CredentialStatusGenerating, true},
		{CredentialStatusAvailable, true},
		{CredentialStatusInvalidated, true},
		{CredentialStatusError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			c := &Credential{Status: tt.status}
			if got := c.HasCredential(); got != tt.want {
				t.Errorf("HasCredential() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredential_NeedsInvalidation(t *testing.T) {
	tests := []struct {
		name     string
		status   CredentialStatus
		previous string
		reason   string
		want     bool
	}{
		{"new reason on available", CredentialStatusAvailable, "", "Name changed", true},
		{"new reason on error", CredentialStatusError, "", "Duplicate", true},
		{"empty reason", CredentialStatusAvailable, "", "", false},
		{"unchanged reason", CredentialStatusAvailable, "Name changed", "Name changed", false},
		{"already invalidated", CredentialStatusInvalidated, "Name changed", "Name changed\nAgain", false},
		{"still generating", CredentialStatusGenerating, "", "Name changed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credential{Status: tt.status, InvalidationReason: tt.reason}
			if got := c.NeedsInvalidation(tt.previous); got != tt.want {
				t.Errorf("NeedsInvalidation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredential_Invalidate(t *testing.T) {
	c := NewCredential(1, 1)
	c.MarkAvailable("https://example.com/c.png")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	c.Invalidate("", at)

	if c.Status != CredentialStatusInvalidated {
		t.Errorf("expected invalidated, got %s", c.Status)
	}
	if c.DownloadURL != "" {
		t.Errorf("expected empty download url, got %q", c.DownloadURL)
	}
	if c.InvalidatedAt == nil || !c.InvalidatedAt.Equal(at) {
		t.Errorf("expected invalidated_at %v, got %v", at, c.InvalidatedAt)
	}
}

func TestCredential_AppendInvalidationReason(t *testing.T) {
	c := &Credential{}
	c.AppendInvalidationReason("First")
	c.AppendInvalidationReason("  ")
	c.AppendInvalidationReason(DefaultReissueReason)

	if c.InvalidationReason != "First\nReissued" {
		t.Errorf("unexpected reason %q", c.InvalidationReason)
	}
}

func TestCredential_MarkFailedKeepsTaskID(t *testing.T) {
	c := NewCredential(1, 1)
	c.StartGeneration("Ada Lovelace", "Analytical Engines", "task-42")
	c.MarkFailed()

	if c.Status != CredentialStatusError {
		t.Errorf("expected error, got %s", c.Status)
	}
	if c.GenerationTaskID != "task-42" {
		t.Errorf("expected task id to be kept, got %q", c.GenerationTaskID)
	}
	if c.DownloadURL != "" {
		t.Errorf("expected empty download url, got %q", c.DownloadURL)
	}
}
