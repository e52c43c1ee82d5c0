package db

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/google/uuid"
)

const credentialColumns = `uuid, verify_uuid, user_id, configuration_id, user_full_name, learning_context_name,
	status, download_url, legacy_id, generation_task_id, invalidated_at, invalidation_reason,
	created_at, updated_at`

func scanCredential(row interface{ Scan(...any) error }) (*models.Credential, error) {
	var c models.Credential
	var status string
	err := row.Scan(
		&c.UUID, &c.VerifyUUID, &c.UserID, &c.ConfigurationID, &c.UserFullName, &c.LearningContextName,
		&status, &c.DownloadURL, &c.LegacyID, &c.GenerationTaskID, &c.InvalidatedAt, &c.InvalidationReason,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = models.CredentialStatus(status)
	return &c, nil
}

func (db *DB) queryCredentials(ctx context.Context, op, where string, args ...any) ([]*models.Credential, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+credentialColumns+` FROM credentials `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var out []*models.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCredential inserts a credential.
func (db *DB) CreateCredential(ctx context.Context, c *models.Credential) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO credentials (`+credentialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, c.UUID, c.VerifyUUID, c.UserID, c.ConfigurationID, c.UserFullName, c.LearningContextName,
		string(c.Status), c.DownloadURL, c.LegacyID, c.GenerationTaskID, c.InvalidatedAt, c.InvalidationReason,
		c.CreatedAt, c.UpdatedAt)
	return mapError("create credential", err)
}

// UpsertGeneratingCredential inserts c or, when the pair already has a
// non-invalidated row, resets that row to generating with the snapshot fields
// of c. The statement is arbitrated by uq_credentials_current_pair so
// concurrent callers end on the same row.
func (db *DB) UpsertGeneratingCredential(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	stored, err := scanCredential(db.Pool.QueryRow(ctx, `
		INSERT INTO credentials (`+credentialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, configuration_id) WHERE status <> 'invalidated'
		DO UPDATE SET user_full_name = EXCLUDED.user_full_name,
		              learning_context_name = EXCLUDED.learning_context_name,
		              generation_task_id = EXCLUDED.generation_task_id,
		              status = EXCLUDED.status,
		              updated_at = EXCLUDED.updated_at
		RETURNING `+credentialColumns,
		c.UUID, c.VerifyUUID, c.UserID, c.ConfigurationID, c.UserFullName, c.LearningContextName,
		string(models.CredentialStatusGenerating), c.DownloadURL, c.LegacyID, c.GenerationTaskID, c.InvalidatedAt, c.InvalidationReason,
		c.CreatedAt, c.UpdatedAt))
	if err != nil {
		return nil, mapError(fmt.Sprintf("upsert credential of user %d", c.UserID), err)
	}
	return stored, nil
}

// UpdateCredential updates the mutable fields of a credential.
func (db *DB) UpdateCredential(ctx context.Context, c *models.Credential) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE credentials
		SET user_full_name = $2, learning_context_name = $3, status = $4, download_url = $5,
		    generation_task_id = $6, invalidated_at = $7, invalidation_reason = $8, updated_at = $9
		WHERE uuid = $1
	`, c.UUID, c.UserFullName, c.LearningContextName, string(c.Status), c.DownloadURL,
		c.GenerationTaskID, c.InvalidatedAt, c.InvalidationReason, c.UpdatedAt)
	if err != nil {
		return mapError("update credential", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("credential", c.UUID)
	}
	return nil
}

// GetCredential returns a credential by uuid.
func (db *DB) GetCredential(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	c, err := scanCredential(db.Pool.QueryRow(ctx, `SELECT `+credentialColumns+` FROM credentials WHERE uuid = $1`, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get credential %s", id), err)
	}
	return c, nil
}

// GetCredentialByVerifyUUID returns a credential by its verification uuid.
func (db *DB) GetCredentialByVerifyUUID(ctx context.Context, verifyUUID uuid.UUID) (*models.Credential, error) {
	c, err := scanCredential(db.Pool.QueryRow(ctx, `SELECT `+credentialColumns+` FROM credentials WHERE verify_uuid = $1`, verifyUUID))
	if err != nil {
		return nil, mapError("get credential by verify uuid", err)
	}
	return c, nil
}

// ListCredentialsByConfiguration returns the credentials of a configuration, newest first.
func (db *DB) ListCredentialsByConfiguration(ctx context.Context, configurationID int64) ([]*models.Credential, error) {
	return db.queryCredentials(ctx, "list credentials by configuration", `WHERE configuration_id = $1`, configurationID)
}

// ListCredentialsByUser returns the credentials of a user, newest first.
func (db *DB) ListCredentialsByUser(ctx context.Context, userID int64) ([]*models.Credential, error) {
	return db.queryCredentials(ctx, "list credentials by user", `WHERE user_id = $1`, userID)
}
