package models

import (
	"fmt"
	"path"
	"time"
)

// AssetPathPrefix is the storage prefix of credential template assets.
const AssetPathPrefix = "learning_credentials_template_assets"

// CredentialAsset is a named binary (template, font, image) used by generators.
type CredentialAsset struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Asset       string    `json:"asset"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AssetPath returns the storage path of an asset file.
func AssetPath(assetID int64, filename string) string {
	return fmt.Sprintf("%s/%d/%s", AssetPathPrefix, assetID, path.Base(filename))
}
