package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/models"
)

const credentialTypeColumns = `id, name, retrieval_func, generation_func, custom_options, created_at, updated_at`

func marshalOptions(opts map[string]any) ([]byte, error) {
	if opts == nil {
		opts = map[string]any{}
	}
	return json.Marshal(opts)
}

func unmarshalOptions(data []byte) (map[string]any, error) {
	opts := map[string]any{}
	if len(data) == 0 {
		return opts, nil
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("parse custom options: %w", err)
	}
	return opts, nil
}

func scanCredentialType(row interface{ Scan(...any) error }) (*models.CredentialType, error) {
	var t models.CredentialType
	var opts []byte
	if err := row.Scan(&t.ID, &t.Name, &t.RetrievalFunc, &t.GenerationFunc, &opts, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if t.CustomOptions, err = unmarshalOptions(opts); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateCredentialType inserts a credential type and assigns its id.
func (db *DB) CreateCredentialType(ctx context.Context, t *models.CredentialType) error {
	opts, err := marshalOptions(t.CustomOptions)
	if err != nil {
		return fmt.Errorf("marshal custom options: %w", err)
	}
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO credential_types (name, retrieval_func, generation_func, custom_options, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, t.Name, t.RetrievalFunc, t.GenerationFunc, opts, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	return mapError("create credential type", err)
}

// UpdateCredentialType updates a credential type.
func (db *DB) UpdateCredentialType(ctx context.Context, t *models.CredentialType) error {
	opts, err := marshalOptions(t.CustomOptions)
	if err != nil {
		return fmt.Errorf("marshal custom options: %w", err)
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE credential_types
		SET name = $2, retrieval_func = $3, generation_func = $4, custom_options = $5, updated_at = $6
		WHERE id = $1
	`, t.ID, t.Name, t.RetrievalFunc, t.GenerationFunc, opts, t.UpdatedAt)
	if err != nil {
		return mapError("update credential type", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("credential type", t.ID)
	}
	return nil
}

// GetCredentialType returns a credential type by id.
func (db *DB) GetCredentialType(ctx context.Context, id int64) (*models.CredentialType, error) {
	t, err := scanCredentialType(db.Pool.QueryRow(ctx,
		`SELECT `+credentialTypeColumns+` FROM credential_types WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get credential type %d", id), err)
	}
	return t, nil
}

// GetCredentialTypeByName returns a credential type by name.
func (db *DB) GetCredentialTypeByName(ctx context.Context, name string) (*models.CredentialType, error) {
	t, err := scanCredentialType(db.Pool.QueryRow(ctx,
		`SELECT `+credentialTypeColumns+` FROM credential_types WHERE name = $1`, name))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get credential type %q", name), err)
	}
	return t, nil
}

// ListCredentialTypes returns all credential types ordered by name.
func (db *DB) ListCredentialTypes(ctx context.Context) ([]*models.CredentialType, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+credentialTypeColumns+` FROM credential_types ORDER BY name`)
	if err != nil {
		return nil, mapError("list credential types", err)
	}
	defer rows.Close()

	var types []*models.CredentialType
	for rows.Next() {
		t, err := scanCredentialType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}
