package db

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/models"
)

// CreateAsset inserts an asset record and assigns its id.
func (db *DB) CreateAsset(ctx context.Context, a *models.CredentialAsset) error {
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO credential_assets (slug, description, asset, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, a.Slug, a.Description, a.Asset, a.CreatedAt, a.UpdatedAt).Scan(&a.ID)
	return mapError("create asset", err)
}

// UpdateAsset updates an asset record.
func (db *DB) UpdateAsset(ctx context.Context, a *models.CredentialAsset) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE credential_assets
		SET slug = $2, description = $3, asset = $4, updated_at = $5
		WHERE id = $1
	`, a.ID, a.Slug, a.Description, a.Asset, a.UpdatedAt)
	if err != nil {
		return mapError("update asset", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("asset", a.ID)
	}
	return nil
}

// GetAssetBySlug returns an asset record by slug.
func (db *DB) GetAssetBySlug(ctx context.Context, slug string) (*models.CredentialAsset, error) {
	var a models.CredentialAsset
	err := db.Pool.QueryRow(ctx, `
		SELECT id, slug, description, asset, created_at, updated_at
		FROM credential_assets
		WHERE slug = $1
	`, slug).Scan(&a.ID, &a.Slug, &a.Description, &a.Asset, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapError(fmt.Sprintf("get asset %s", slug), err)
	}
	return &a, nil
}
