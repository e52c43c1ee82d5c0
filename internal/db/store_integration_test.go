//go:build integration

package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/credentials"
	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *DB

func TestMain(m *testing.M) {
	if !dockerAvailable() {
		fmt.Println("Docker is not available, skipping integration tests")
		os.Exit(0)
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("credentials_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to get connection string: %v", err)
	}

	cfg := DefaultConfig(connStr)
	cfg.MaxConns = 5
	cfg.MinConns = 1

	testDB, err = New(ctx, cfg, zerolog.New(zerolog.NewConsoleWriter()))
	if err != nil {
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := testDB.Migrate(ctx); err != nil {
		testDB.Close()
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to run migrations: %v", err)
	}

	code := m.Run()

	testDB.Close()
	pgContainer.Terminate(ctx)

	os.Exit(code)
}

// dockerAvailable returns true if a Docker daemon is reachable.
func dockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB returns the shared test database after cleaning all tables.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	_, err := testDB.Pool.Exec(ctx, `
		DO $$ DECLARE r RECORD;
		BEGIN
			FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename != 'schema_migrations') LOOP
				EXECUTE 'TRUNCATE TABLE ' || quote_ident(r.tablename) || ' CASCADE';
			END LOOP;
		END $$;
	`)
	require.NoError(t, err)
	return testDB
}

func createTestUser(t *testing.T, db *DB, id int64) *models.User {
	t.Helper()
	u := models.NewUser(id, fmt.Sprintf("learner%d", id), fmt.Sprintf("learner%d@example.com", id))
	u.FirstName = "Learner"
	require.NoError(t, db.UpsertUser(context.Background(), u))
	return u
}

func createTestConfiguration(t *testing.T, db *DB, key models.LearningContextKey) *models.CredentialConfiguration {
	t.Helper()
	ctx := context.Background()

	ct, err := db.GetCredentialTypeByName(ctx, "Completion")
	if err != nil {
		ct = models.NewCredentialType("Completion", "learning_credentials.retrieve_completions", "learning_credentials.generate_image_credential", map[string]any{"required_completion": 0.9})
		require.NoError(t, db.CreateCredentialType(ctx, ct))
	}
	task := models.NewPeriodicTask("Completion in "+key.String(), models.TaskGenerateCredentialsForConfig)
	require.NoError(t, db.CreatePeriodicTask(ctx, task))

	cfg := models.NewCredentialConfiguration(key, ct, map[string]any{"title": "Certificate"})
	cfg.PeriodicTaskID = task.ID
	require.NoError(t, db.CreateConfiguration(ctx, cfg))
	return cfg
}

func TestDB_MigrationState(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	all, err := GetMigrations()
	require.NoError(t, err)

	applied, err := db.AppliedVersions(ctx)
	require.NoError(t, err)
	for _, m := range all {
		assert.True(t, applied[m.Version], "migration %s not recorded", m.Name)
	}

	pending, err := db.PendingMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	version, err := db.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, all[len(all)-1].Version, version)

	require.NoError(t, db.Migrate(ctx), "second migrate is a no-op")

	health := db.Health(ctx)
	assert.Equal(t, 0, health["pending_migrations"])
	assert.Contains(t, health, "total_conns")
}

func TestStore_Configurations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		cfg := createTestConfiguration(t, db, "course-v1:OpenedX+Get+2026")

		got, err := db.GetConfiguration(ctx, cfg.ID)
		require.NoError(t, err)
		assert.Equal(t, cfg.LearningContextKey, got.LearningContextKey)
		require.NotNil(t, got.CredentialType)
		assert.Equal(t, "Completion", got.CredentialType.Name)
		assert.Equal(t, "Certificate", got.CustomOptions["title"])
		assert.Equal(t, 0.9, got.CredentialType.CustomOptions["required_completion"])
	})

	t.Run("DuplicateContextAndType", func(t *testing.T) {
		cfg := createTestConfiguration(t, db, "course-v1:OpenedX+Dup+2026")
		task := models.NewPeriodicTask("dup", models.TaskGenerateCredentialsForConfig)
		require.NoError(t, db.CreatePeriodicTask(ctx, task))

		dup := models.NewCredentialConfiguration(cfg.LearningContextKey, cfg.CredentialType, nil)
		dup.PeriodicTaskID = task.ID
		err := db.CreateConfiguration(ctx, dup)
		assert.ErrorIs(t, err, credentials.ErrConfigurationExists)
	})

	t.Run("EnabledFollowsTask", func(t *testing.T) {
		cfg := createTestConfiguration(t, db, "course-v1:OpenedX+Enabled+2026")
		task, err := db.GetPeriodicTask(ctx, cfg.PeriodicTaskID)
		require.NoError(t, err)
		task.Enabled = true
		require.NoError(t, db.UpdatePeriodicTask(ctx, task))

		enabled, err := db.ListEnabledConfigurations(ctx)
		require.NoError(t, err)
		require.Len(t, enabled, 1)
		assert.Equal(t, cfg.ID, enabled[0].ID)

		tasks, err := db.ListEnabledPeriodicTasks(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 1)

		now := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, db.MarkPeriodicTaskRun(ctx, task.ID, now))
		got, err := db.GetPeriodicTask(ctx, task.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastRunAt)
		assert.True(t, got.LastRunAt.Equal(now))
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := db.GetConfiguration(ctx, 999999)
		assert.ErrorIs(t, err, credentials.ErrNotFound)
	})
}

func TestStore_DeleteCascade(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, 1)

	t.Run("TaskDeleteCascadesToConfiguration", func(t *testing.T) {
		cfg := createTestConfiguration(t, db, "course-v1:OpenedX+Cascade+2026")
		require.NoError(t, db.DeletePeriodicTask(ctx, cfg.PeriodicTaskID))

		_, err := db.GetConfiguration(ctx, cfg.ID)
		assert.ErrorIs(t, err, credentials.ErrNotFound)
	})

	t.Run("CredentialsRestrictDelete", func(t *testing.T) {
		cfg := createTestConfiguration(t, db, "course-v1:OpenedX+Restrict+2026")
		require.NoError(t, db.CreateCredential(ctx, models.NewCredential(1, cfg.ID)))

		err := db.DeleteConfiguration(ctx, cfg.ID)
		assert.ErrorIs(t, err, credentials.ErrConfigurationInUse)

		err = db.DeletePeriodicTask(ctx, cfg.PeriodicTaskID)
		assert.ErrorIs(t, err, credentials.ErrConfigurationInUse)
	})
}

func TestStore_Credentials(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, 1)
	cfg := createTestConfiguration(t, db, "course-v1:OpenedX+Creds+2026")

	older := models.NewCredential(1, cfg.ID)
	older.Status = models.CredentialStatusInvalidated
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, db.CreateCredential(ctx, older))

	newer := models.NewCredential(1, cfg.ID)
	require.NoError(t, db.CreateCredential(ctx, newer))

	t.Run("Update", func(t *testing.T) {
		newer.MarkAvailable("https://media.example.com/x.png")
		newer.GenerationTaskID = "task-1"
		require.NoError(t, db.UpdateCredential(ctx, newer))

		got, err := db.GetCredentialByVerifyUUID(ctx, newer.VerifyUUID)
		require.NoError(t, err)
		assert.Equal(t, models.CredentialStatusAvailable, got.Status)
		assert.Equal(t, "task-1", got.GenerationTaskID)
	})

	t.Run("ListByUser", func(t *testing.T) {
		list, err := db.ListCredentialsByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.UUID, list[0].UUID)
	})

	t.Run("UpsertReusesCurrentRow", func(t *testing.T) {
		candidate := models.NewCredential(1, cfg.ID)
		candidate.StartGeneration("Ada Lovelace", "Creds", "task-2")

		got, err := db.UpsertGeneratingCredential(ctx, candidate)
		require.NoError(t, err)
		assert.Equal(t, newer.UUID, got.UUID)
		assert.Equal(t, models.CredentialStatusGenerating, got.Status)
		assert.Equal(t, "task-2", got.GenerationTaskID)
		assert.Equal(t, "Ada Lovelace", got.UserFullName)
	})

	t.Run("SecondCurrentRowRejected", func(t *testing.T) {
		err := db.CreateCredential(ctx, models.NewCredential(1, cfg.ID))
		assert.ErrorIs(t, err, credentials.ErrCredentialExists)
	})

	t.Run("ConcurrentUpsert", func(t *testing.T) {
		createTestUser(t, db, 2)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				candidate := models.NewCredential(2, cfg.ID)
				candidate.StartGeneration("Grace Hopper", "Creds", "")
				_, err := db.UpsertGeneratingCredential(ctx, candidate)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		list, err := db.ListCredentialsByUser(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestStore_Assets(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := &models.CredentialAsset{Slug: "logo", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, db.CreateAsset(ctx, a))
	a.Asset = models.AssetPath(a.ID, "logo.png")
	require.NoError(t, db.UpdateAsset(ctx, a))

	got, err := db.GetAssetBySlug(ctx, "logo")
	require.NoError(t, err)
	assert.Equal(t, a.Asset, got.Asset)

	err = db.CreateAsset(ctx, &models.CredentialAsset{Slug: "logo"})
	assert.ErrorIs(t, err, credentials.ErrAssetExists)
}

func TestStore_LearningPaths(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, 3)

	path := &models.LearningPath{
		Key:         "path-v1:OpenedX+Data+2026+Cohort1",
		DisplayName: "Data Science",
		CreatedAt:   time.Now(),
		Steps: []models.LearningPathStep{
			{Order: 2, CourseKey: "course-v1:OpenedX+ML+2026"},
			{Order: 1, CourseKey: "course-v1:OpenedX+Stats+2026"},
		},
	}
	require.NoError(t, db.CreateLearningPath(ctx, path))

	got, err := db.GetLearningPath(ctx, path.Key)
	require.NoError(t, err)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, models.LearningContextKey("course-v1:OpenedX+Stats+2026"), got.Steps[0].CourseKey)

	paths, err := db.ListLearningPathsByCourse(ctx, "course-v1:OpenedX+ML+2026")
	require.NoError(t, err)
	require.Len(t, paths, 1)

	require.NoError(t, db.UpsertLearningPathEnrollment(ctx, &models.LearningPathEnrollment{
		UserID: 3, LearningPathKey: path.Key, IsActive: true, CreatedAt: time.Now(),
	}))
	enrollment, err := db.GetLearningPathEnrollment(ctx, 3, path.Key)
	require.NoError(t, err)
	assert.True(t, enrollment.IsActive)
}

func TestStore_JobQueue(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	low := models.NewGenerateAllCredentialsJob()
	high := models.NewGenerateCredentialForUserJob(1, 2)
	require.NoError(t, db.CreateJob(ctx, low))
	require.NoError(t, db.CreateJob(ctx, high))

	next, err := db.GetNextPendingJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, high.ID, next.ID)
	assert.Equal(t, models.JobStatusRunning, next.Status)
	assert.Equal(t, int64(2), next.Payload.UserID)

	summary, err := db.GetJobQueueSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalPending)
	assert.Equal(t, 1, summary.TotalRunning)

	_, err = db.GetNextPendingJob(ctx)
	require.NoError(t, err)
	empty, err := db.GetNextPendingJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)
}
