package credentials

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConfigurationInUse is returned when deleting a configuration that credentials reference.
	ErrConfigurationInUse = errors.New("credential configuration is referenced by credentials")
	// ErrCredentialTypeExists is returned for a duplicate credential type name.
	ErrCredentialTypeExists = errors.New("credential type with this name already exists")
	// ErrAssetExists is returned for a duplicate asset slug.
	ErrAssetExists = errors.New("credential asset with this slug already exists")
	// ErrConfigurationExists is returned for a duplicate (context key, credential type) pair.
	ErrConfigurationExists = errors.New("credential configuration already exists for this learning context and type")
	// ErrReadOnlyField is returned when changing the context key or type of a saved configuration.
	ErrReadOnlyField = errors.New("learning context key and credential type cannot be changed")
	// ErrNotEligible is returned when requesting generation for an ineligible user.
	ErrNotEligible = errors.New("user is not eligible for this credential")
	// ErrAlreadyCredentialed is returned when the user already holds a credential.
	ErrAlreadyCredentialed = errors.New("user already has a credential")
	// ErrCredentialExists is returned when inserting a second non-invalidated
	// credential for the same user and configuration.
	ErrCredentialExists = errors.New("a current credential already exists for this user and configuration")
	// ErrCredentialGenerating is returned when invalidating a credential whose
	// generation has not finished.
	ErrCredentialGenerating = errors.New("credential is still generating")
)

// CredentialGenerationError wraps a generator failure for one user.
type CredentialGenerationError struct {
	UserID          int64
	ConfigurationID int64
	Err             error
}

func (e *CredentialGenerationError) Error() string {
	return fmt.Sprintf("Failed to generate the credential for user %d (configuration %d): %v", e.UserID, e.ConfigurationID, e.Err)
}

func (e *CredentialGenerationError) Unwrap() error {
	return e.Err
}

// AssetNotFoundError is returned for an unknown asset slug.
type AssetNotFoundError struct {
	Slug string
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("Asset with slug %s does not exist", e.Slug)
}

// Is lets errors.Is(err, ErrNotFound) match unknown assets.
func (e *AssetNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
