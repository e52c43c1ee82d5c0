// Package generators renders credential documents.
package generators

import (
	"context"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/MacJediWizard/learning-credentials/internal/registry"
)

// Func produces the document of a credential and returns its download URL.
// With invalidate set it removes a previously produced document instead and
// returns the URL to keep on the record (usually empty).
type Func func(ctx context.Context, c *models.Credential, opts map[string]any, invalidate bool) (string, error)

// Registry holds the generation functions credential types may reference.
type Registry = registry.Registry[Func]

// NewRegistry creates an empty generation function registry.
func NewRegistry() *Registry {
	return registry.New[Func]()
}

// AssetSource loads template assets by slug.
type AssetSource interface {
	AssetBytes(ctx context.Context, slug string) ([]byte, error)
}
