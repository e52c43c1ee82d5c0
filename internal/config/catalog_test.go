package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MacJediWizard/learning-credentials/internal/models"
)

const sampleCatalog = `
credential_types:
  - name: Certificate of completion
    retrieval_func: learning_credentials.retrieve_completions
    generation_func: learning_credentials.generate_image_credential
    custom_options:
      template: base-certificate
      required_completion: 0.8
      steps:
        course-v1:OpenedX+DemoX+2026:
          required_completion: 1.0
configurations:
  - learning_context_key: course-v1:OpenedX+DemoX+2026
    credential_type: Certificate of completion
    enabled: true
    custom_options:
      name_y: 420
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog(writeCatalog(t, sampleCatalog))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(c.CredentialTypes) != 1 || len(c.Configurations) != 1 {
		t.Fatalf("expected 1 type and 1 configuration, got %d and %d", len(c.CredentialTypes), len(c.Configurations))
	}

	ct := c.CredentialTypes[0].Model()
	if ct.Name != "Certificate of completion" {
		t.Errorf("unexpected name %q", ct.Name)
	}
	if ct.CustomOptions["required_completion"] != 0.8 {
		t.Errorf("expected required_completion 0.8, got %v", ct.CustomOptions["required_completion"])
	}
	steps, ok := ct.CustomOptions["steps"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested steps mapping, got %T", ct.CustomOptions["steps"])
	}
	if _, ok := steps["course-v1:OpenedX+DemoX+2026"].(map[string]any); !ok {
		t.Errorf("expected step options mapping, got %T", steps["course-v1:OpenedX+DemoX+2026"])
	}

	cfg := c.Configurations[0]
	if !cfg.Enabled || cfg.CredentialType != "Certificate of completion" {
		t.Errorf("unexpected configuration %+v", cfg)
	}
}

func TestLoadCatalog_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		if _, err := LoadCatalog(writeCatalog(t, "credential_types: [")); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestCatalog_Validate(t *testing.T) {
	typ := CredentialTypeSpec{Name: "Grades", RetrievalFunc: "a.b", GenerationFunc: "c.d"}

	tests := []struct {
		name    string
		catalog Catalog
		wantErr string
	}{
		{"valid", Catalog{CredentialTypes: []CredentialTypeSpec{typ}}, ""},
		{"missing name", Catalog{CredentialTypes: []CredentialTypeSpec{{RetrievalFunc: "a.b", GenerationFunc: "c.d"}}}, "name is required"},
		{"duplicate name", Catalog{CredentialTypes: []CredentialTypeSpec{typ, typ}}, "duplicate name"},
		{"missing functions", Catalog{CredentialTypes: []CredentialTypeSpec{{Name: "x"}}}, "retrieval_func is required"},
		{"invalid key", Catalog{Configurations: []ConfigurationSpec{{LearningContextKey: "demo", CredentialType: "Grades"}}}, "Invalid learning context key"},
		{"missing type", Catalog{Configurations: []ConfigurationSpec{{LearningContextKey: "course-v1:A+B+C"}}}, "credential_type is required"},
		{"duplicate configuration", Catalog{Configurations: []ConfigurationSpec{
			{LearningContextKey: "course-v1:A+B+C", CredentialType: "Grades"},
			{LearningContextKey: "course-v1:A+B+C", CredentialType: "Grades"},
		}}, "duplicate configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.catalog.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCatalog_SaveRoundTrip(t *testing.T) {
	ct := models.NewCredentialType("Grades", "learning_credentials.retrieve_subsection_grades",
		"learning_credentials.generate_image_credential", map[string]any{"template": "base"})
	cfg := models.NewCredentialConfiguration("path-v1:OpenedX+Data+2026+cohort", ct, nil)
	cfg.Enabled = true

	path := filepath.Join(t.TempDir(), "nested", "catalog.yml")
	if err := NewCatalog([]*models.CredentialType{ct}, []*models.CredentialConfiguration{cfg}).Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Configurations[0].CredentialType != "Grades" {
		t.Errorf("expected type name Grades, got %q", loaded.Configurations[0].CredentialType)
	}
	if loaded.CredentialTypes[0].CustomOptions["template"] != "base" {
		t.Errorf("expected template option, got %v", loaded.CredentialTypes[0].CustomOptions)
	}
}
