package db

import (
	"errors"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/credentials"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeUndefinedTable      = "42P01"
)

// Unique constraints declared by the schema.
const (
	constraintConfigurationContextType = "uq_configuration_context_type"
	constraintCredentialTypeName       = "uq_credential_type_name"
	constraintAssetSlug                = "uq_credential_asset_slug"
	constraintCurrentCredential        = "uq_credentials_current_pair"
)

// mapError translates driver errors into the credential store errors.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, credentials.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			switch pgErr.ConstraintName {
			case constraintConfigurationContextType:
				return fmt.Errorf("%s: %w", op, credentials.ErrConfigurationExists)
			case constraintCredentialTypeName:
				return fmt.Errorf("%s: %w", op, credentials.ErrCredentialTypeExists)
			case constraintAssetSlug:
				return fmt.Errorf("%s: %w", op, credentials.ErrAssetExists)
			case constraintCurrentCredential:
				return fmt.Errorf("%s: %w", op, credentials.ErrCredentialExists)
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUndefinedTable
}

// mapDeleteError reports restricted deletes of configurations as
// credentials.ErrConfigurationInUse.
func mapDeleteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
		return fmt.Errorf("%s: %w", op, credentials.ErrConfigurationInUse)
	}
	return mapError(op, err)
}
