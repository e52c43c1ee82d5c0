package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/MacJediWizard/learning-credentials/internal/storage"
)

// SaveAsset stores the file of an asset under its id-namespaced path,
// replacing any previous file, and persists the record.
func (s *Service) SaveAsset(ctx context.Context, a *models.CredentialAsset, filename string, body io.Reader) error {
	if a.Slug == "" {
		return errors.New("asset slug is required")
	}
	if s.objects == nil {
		return errors.New("object storage is not configured")
	}

	now := s.now()
	a.UpdatedAt = now
	if a.ID == 0 {
		existing, err := s.store.GetAssetBySlug(ctx, a.Slug)
		switch {
		case err == nil:
			a.ID = existing.ID
			a.Asset = existing.Asset
			a.CreatedAt = existing.CreatedAt
		case isNotFound(err):
			a.CreatedAt = now
			// The id namespaces the stored path.
			if err := s.store.CreateAsset(ctx, a); err != nil {
				return fmt.Errorf("create asset: %w", err)
			}
		default:
			return fmt.Errorf("get asset %s: %w", a.Slug, err)
		}
	}

	previous := a.Asset
	a.Asset = models.AssetPath(a.ID, filename)
	if previous != "" && previous != a.Asset {
		if err := s.objects.Delete(ctx, previous); err != nil {
			s.logger.Warn().Err(err).Str("path", previous).Msg("failed to delete previous asset file")
		}
	}

	contentType := mime.TypeByExtension(path.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := storage.Replace(ctx, s.objects, a.Asset, body, contentType); err != nil {
		return fmt.Errorf("store asset %s: %w", a.Slug, err)
	}

	if err := s.store.UpdateAsset(ctx, a); err != nil {
		return fmt.Errorf("update asset: %w", err)
	}

	s.logger.Info().Str("slug", a.Slug).Str("path", a.Asset).Msg("credential asset saved")
	return nil
}

// GetAssetBySlug returns an asset record, or *AssetNotFoundError.
func (s *Service) GetAssetBySlug(ctx context.Context, slug string) (*models.CredentialAsset, error) {
	a, err := s.store.GetAssetBySlug(ctx, slug)
	if err != nil {
		if isNotFound(err) {
			return nil, &AssetNotFoundError{Slug: slug}
		}
		return nil, fmt.Errorf("get asset %s: %w", slug, err)
	}
	return a, nil
}

// AssetBytes returns the stored file of an asset.
func (s *Service) AssetBytes(ctx context.Context, slug string) ([]byte, error) {
	a, err := s.GetAssetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if a.Asset == "" || s.objects == nil {
		return nil, &AssetNotFoundError{Slug: slug}
	}
	data, err := storage.ReadAll(ctx, s.objects, a.Asset)
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", slug, err)
	}
	return data, nil
}

// AssetURL returns the public URL of an asset's file.
func (s *Service) AssetURL(ctx context.Context, slug string) (string, error) {
	a, err := s.GetAssetBySlug(ctx, slug)
	if err != nil {
		return "", err
	}
	return s.objects.URL(a.Asset), nil
}
