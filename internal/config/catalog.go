package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"gopkg.in/yaml.v3"
)

// CredentialTypeSpec declares a credential type in a catalog file.
type CredentialTypeSpec struct {
	Name           string         `yaml:"name"`
	RetrievalFunc  string         `yaml:"retrieval_func"`
	GenerationFunc string         `yaml:"generation_func"`
	CustomOptions  map[string]any `yaml:"custom_options,omitempty"`
}

// Model returns a new, unsaved credential type.
func (s CredentialTypeSpec) Model() *models.CredentialType {
	return models.NewCredentialType(s.Name, s.RetrievalFunc, s.GenerationFunc, s.CustomOptions)
}

// ConfigurationSpec declares a credential configuration in a catalog file.
// CredentialType refers to a type by name.
type ConfigurationSpec struct {
	LearningContextKey string         `yaml:"learning_context_key"`
	CredentialType     string         `yaml:"credential_type"`
	Enabled            bool           `yaml:"enabled,omitempty"`
	CustomOptions      map[string]any `yaml:"custom_options,omitempty"`
}

// Catalog is a declarative set of credential types and configurations,
// imported with `credentialsctl catalog import`.
type Catalog struct {
	CredentialTypes []CredentialTypeSpec `yaml:"credential_types"`
	Configurations  []ConfigurationSpec  `yaml:"configurations,omitempty"`
}

// Validate checks required fields and duplicate entries. Function names are
// resolved against the registries at import time.
func (c *Catalog) Validate() error {
	var errs []error

	names := make(map[string]bool, len(c.CredentialTypes))
	for i, t := range c.CredentialTypes {
		switch {
		case t.Name == "":
			errs = append(errs, fmt.Errorf("credential_types[%d]: name is required", i))
		case names[t.Name]:
			errs = append(errs, fmt.Errorf("credential_types[%d]: duplicate name %q", i, t.Name))
		}
		names[t.Name] = true
		if t.RetrievalFunc == "" {
			errs = append(errs, fmt.Errorf("credential_types[%d]: retrieval_func is required", i))
		}
		if t.GenerationFunc == "" {
			errs = append(errs, fmt.Errorf("credential_types[%d]: generation_func is required", i))
		}
	}

	pairs := make(map[string]bool, len(c.Configurations))
	for i, cfg := range c.Configurations {
		if _, err := models.ParseLearningContextKey(cfg.LearningContextKey); err != nil {
			errs = append(errs, fmt.Errorf("configurations[%d]: %w", i, err))
		}
		if cfg.CredentialType == "" {
			errs = append(errs, fmt.Errorf("configurations[%d]: credential_type is required", i))
		}
		pair := cfg.LearningContextKey + "|" + cfg.CredentialType
		if pairs[pair] {
			errs = append(errs, fmt.Errorf("configurations[%d]: duplicate configuration of %q in %s", i, cfg.CredentialType, cfg.LearningContextKey))
		}
		pairs[pair] = true
	}

	return errors.Join(errs...)
}

// LoadCatalog reads and validates a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return &c, nil
}

// Save writes the catalog to path, creating directories as needed.
func (c *Catalog) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog file: %w", err)
	}
	return nil
}

// NewCatalog builds a catalog from persisted types and configurations.
func NewCatalog(types []*models.CredentialType, configs []*models.CredentialConfiguration) *Catalog {
	c := &Catalog{}
	for _, t := range types {
		c.CredentialTypes = append(c.CredentialTypes, CredentialTypeSpec{
			Name:           t.Name,
			RetrievalFunc:  t.RetrievalFunc,
			GenerationFunc: t.GenerationFunc,
			CustomOptions:  t.CustomOptions,
		})
	}
	for _, cfg := range configs {
		typeName := ""
		if cfg.CredentialType != nil {
			typeName = cfg.CredentialType.Name
		}
		c.Configurations = append(c.Configurations, ConfigurationSpec{
			LearningContextKey: cfg.LearningContextKey.String(),
			CredentialType:     typeName,
			Enabled:            cfg.Enabled,
			CustomOptions:      cfg.CustomOptions,
		})
	}
	return c
}
