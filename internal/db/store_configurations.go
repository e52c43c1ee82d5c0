package db

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/jackc/pgx/v5"
)

// Configurations are always read joined with their credential type.
const configurationSelect = `
	SELECT c.id, c.learning_context_key, c.credential_type_id, c.periodic_task_id,
	       c.custom_options, c.enabled, c.created_at, c.updated_at,
	       t.id, t.name, t.retrieval_func, t.generation_func, t.custom_options, t.created_at, t.updated_at
	FROM credential_configurations c
	JOIN credential_types t ON t.id = c.credential_type_id
`

func scanConfiguration(row interface{ Scan(...any) error }) (*models.CredentialConfiguration, error) {
	var c models.CredentialConfiguration
	var t models.CredentialType
	var cfgOpts, typeOpts []byte
	var key string
	err := row.Scan(
		&c.ID, &key, &c.CredentialTypeID, &c.PeriodicTaskID,
		&cfgOpts, &c.Enabled, &c.CreatedAt, &c.UpdatedAt,
		&t.ID, &t.Name, &t.RetrievalFunc, &t.GenerationFunc, &typeOpts, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.LearningContextKey = models.LearningContextKey(key)
	if c.CustomOptions, err = unmarshalOptions(cfgOpts); err != nil {
		return nil, err
	}
	if t.CustomOptions, err = unmarshalOptions(typeOpts); err != nil {
		return nil, err
	}
	c.CredentialType = &t
	return &c, nil
}

func (db *DB) queryConfigurations(ctx context.Context, op, where string, args ...any) ([]*models.CredentialConfiguration, error) {
	rows, err := db.Pool.Query(ctx, configurationSelect+where+` ORDER BY c.id`, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var configs []*models.CredentialConfiguration
	for rows.Next() {
		c, err := scanConfiguration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan configuration: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

func (db *DB) getConfiguration(ctx context.Context, op, where string, args ...any) (*models.CredentialConfiguration, error) {
	c, err := scanConfiguration(db.Pool.QueryRow(ctx, configurationSelect+where, args...))
	if err != nil {
		return nil, mapError(op, err)
	}
	return c, nil
}

// CreateConfiguration inserts a configuration and assigns its id.
func (db *DB) CreateConfiguration(ctx context.Context, c *models.CredentialConfiguration) error {
	opts, err := marshalOptions(c.CustomOptions)
	if err != nil {
		return fmt.Errorf("marshal custom options: %w", err)
	}
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO credential_configurations (
			learning_context_key, credential_type_id, periodic_task_id,
			custom_options, enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, c.LearningContextKey.String(), c.CredentialTypeID, c.PeriodicTaskID,
		opts, c.Enabled, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	return mapError("create configuration", err)
}

// UpdateConfiguration updates the mutable fields of a configuration.
func (db *DB) UpdateConfiguration(ctx context.Context, c *models.CredentialConfiguration) error {
	opts, err := marshalOptions(c.CustomOptions)
	if err != nil {
		return fmt.Errorf("marshal custom options: %w", err)
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE credential_configurations
		SET custom_options = $2, enabled = $3, updated_at = $4
		WHERE id = $1
	`, c.ID, opts, c.Enabled, c.UpdatedAt)
	if err != nil {
		return mapError("update configuration", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("configuration", c.ID)
	}
	return nil
}

// GetConfiguration returns a configuration by id.
func (db *DB) GetConfiguration(ctx context.Context, id int64) (*models.CredentialConfiguration, error) {
	return db.getConfiguration(ctx, fmt.Sprintf("get configuration %d", id), `WHERE c.id = $1`, id)
}

// GetConfigurationByPeriodicTask returns the configuration owning a periodic task.
func (db *DB) GetConfigurationByPeriodicTask(ctx context.Context, taskID int64) (*models.CredentialConfiguration, error) {
	return db.getConfiguration(ctx, fmt.Sprintf("get configuration for periodic task %d", taskID),
		`WHERE c.periodic_task_id = $1`, taskID)
}

// GetConfigurationByContextAndType returns the configuration of a type in a learning context.
func (db *DB) GetConfigurationByContextAndType(ctx context.Context, key models.LearningContextKey, typeID int64) (*models.CredentialConfiguration, error) {
	return db.getConfiguration(ctx, fmt.Sprintf("get configuration for %s", key),
		`WHERE c.learning_context_key = $1 AND c.credential_type_id = $2`, key.String(), typeID)
}

// ListConfigurations returns every configuration.
func (db *DB) ListConfigurations(ctx context.Context) ([]*models.CredentialConfiguration, error) {
	return db.queryConfigurations(ctx, "list configurations", "")
}

// ListConfigurationsByContext returns the configurations of a learning context.
func (db *DB) ListConfigurationsByContext(ctx context.Context, key models.LearningContextKey) ([]*models.CredentialConfiguration, error) {
	return db.queryConfigurations(ctx, "list configurations by context", `WHERE c.learning_context_key = $1`, key.String())
}

// ListEnabledConfigurations returns the configurations whose periodic task is enabled.
func (db *DB) ListEnabledConfigurations(ctx context.Context) ([]*models.CredentialConfiguration, error) {
	return db.queryConfigurations(ctx, "list enabled configurations",
		`JOIN periodic_tasks p ON p.id = c.periodic_task_id WHERE p.enabled`)
}

// DeleteConfiguration deletes a configuration. Existing credentials make the
// delete fail with credentials.ErrConfigurationInUse.
func (db *DB) DeleteConfiguration(ctx context.Context, id int64) error {
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM credential_configurations WHERE id = $1`, id)
		if err != nil {
			return mapDeleteError("delete configuration", err)
		}
		if tag.RowsAffected() == 0 {
			return notFound("configuration", id)
		}
		return nil
	})
}
