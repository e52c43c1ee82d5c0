package credentials

import (
	"context"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/google/uuid"
)

// Store is the persistence required by the credential service.
// Implementations return ErrNotFound, ErrConfigurationExists and
// ErrConfigurationInUse for the matching conditions.
type Store interface {
	// Users
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// Credential types
	CreateCredentialType(ctx context.Context, t *models.CredentialType) error
	UpdateCredentialType(ctx context.Context, t *models.CredentialType) error
	GetCredentialType(ctx context.Context, id int64) (*models.CredentialType, error)
	GetCredentialTypeByName(ctx context.Context, name string) (*models.CredentialType, error)
	ListCredentialTypes(ctx context.Context) ([]*models.CredentialType, error)

	// Periodic tasks
	CreatePeriodicTask(ctx context.Context, t *models.PeriodicTask) error
	UpdatePeriodicTask(ctx context.Context, t *models.PeriodicTask) error
	GetPeriodicTask(ctx context.Context, id int64) (*models.PeriodicTask, error)
	DeletePeriodicTask(ctx context.Context, id int64) error

	// Configurations are returned with CredentialType populated.
	CreateConfiguration(ctx context.Context, c *models.CredentialConfiguration) error
	UpdateConfiguration(ctx context.Context, c *models.CredentialConfiguration) error
	GetConfiguration(ctx context.Context, id int64) (*models.CredentialConfiguration, error)
	GetConfigurationByPeriodicTask(ctx context.Context, taskID int64) (*models.CredentialConfiguration, error)
	GetConfigurationByContextAndType(ctx context.Context, key models.LearningContextKey, typeID int64) (*models.CredentialConfiguration, error)
	ListConfigurations(ctx context.Context) ([]*models.CredentialConfiguration, error)
	ListConfigurationsByContext(ctx context.Context, key models.LearningContextKey) ([]*models.CredentialConfiguration, error)
	ListEnabledConfigurations(ctx context.Context) ([]*models.CredentialConfiguration, error)
	DeleteConfiguration(ctx context.Context, id int64) error

	// Credentials. A (user, configuration) pair has at most one
	// non-invalidated row; CreateCredential returns ErrCredentialExists
	// otherwise.
	CreateCredential(ctx context.Context, c *models.Credential) error
	// UpsertGeneratingCredential atomically resets the pair's non-invalidated
	// row to generating with the snapshot fields and task id of c, or inserts
	// c when there is none. It returns the stored row.
	UpsertGeneratingCredential(ctx context.Context, c *models.Credential) (*models.Credential, error)
	UpdateCredential(ctx context.Context, c *models.Credential) error
	GetCredential(ctx context.Context, id uuid.UUID) (*models.Credential, error)
	GetCredentialByVerifyUUID(ctx context.Context, verifyUUID uuid.UUID) (*models.Credential, error)
	ListCredentialsByConfiguration(ctx context.Context, configurationID int64) ([]*models.Credential, error)
	ListCredentialsByUser(ctx context.Context, userID int64) ([]*models.Credential, error)

	// Assets
	CreateAsset(ctx context.Context, a *models.CredentialAsset) error
	UpdateAsset(ctx context.Context, a *models.CredentialAsset) error
	GetAssetBySlug(ctx context.Context, slug string) (*models.CredentialAsset, error)
}

// Enqueuer submits background jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *models.Job) error
}

// Mailer delivers templated e-mails to users.
type Mailer interface {
	SendTemplate(ctx context.Context, name string, to *models.User, data map[string]string) error
}

// ContextNamer resolves display names of courses.
type ContextNamer interface {
	CourseName(ctx context.Context, key models.LearningContextKey) (string, error)
}

// LearningPathStore provides learning paths for display names.
type LearningPathStore interface {
	GetLearningPath(ctx context.Context, key models.LearningContextKey) (*models.LearningPath, error)
}
