package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MacJediWizard/learning-credentials/internal/credentials"
	"github.com/MacJediWizard/learning-credentials/internal/models"
)

func seedConfiguration(t *testing.T, s *Store) *models.CredentialConfiguration {
	t.Helper()
	ctx := context.Background()

	ct := models.NewCredentialType("Completion certificate", "learning_credentials.retrieve_completions", "learning_credentials.generate_image_credential", nil)
	if err := s.CreateCredentialType(ctx, ct); err != nil {
		t.Fatalf("create credential type: %v", err)
	}
	task := models.NewPeriodicTask("Completion certificate in course-v1:OpenedX+DemoX+2026", models.TaskGenerateCredentialsForConfig)
	if err := s.CreatePeriodicTask(ctx, task); err != nil {
		t.Fatalf("create periodic task: %v", err)
	}
	cfg := models.NewCredentialConfiguration("course-v1:OpenedX+DemoX+2026", ct, map[string]any{"required_completion": 0.8})
	cfg.PeriodicTaskID = task.ID
	if err := s.CreateConfiguration(ctx, cfg); err != nil {
		t.Fatalf("create configuration: %v", err)
	}
	return cfg
}

func TestStore_ConfigurationConstraints(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate context and type rejected", func(t *testing.T) {
		s := New()
		cfg := seedConfiguration(t, s)

		task := models.NewPeriodicTask("other", models.TaskGenerateCredentialsForConfig)
		_ = s.CreatePeriodicTask(ctx, task)
		dup := &models.CredentialConfiguration{
			LearningContextKey: cfg.LearningContextKey,
			CredentialTypeID:   cfg.CredentialTypeID,
			PeriodicTaskID:     task.ID,
		}
		if err := s.CreateConfiguration(ctx, dup); !errors.Is(err, credentials.ErrConfigurationExists) {
			t.Errorf("expected ErrConfigurationExists, got %v", err)
		}
	})

	t.Run("reads populate credential type", func(t *testing.T) {
		s := New()
		cfg := seedConfiguration(t, s)

		got, err := s.GetConfiguration(ctx, cfg.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.CredentialType == nil || got.CredentialType.Name != "Completion certificate" {
			t.Errorf("expected credential type populated, got %+v", got.CredentialType)
		}
	})

	t.Run("returned values are copies", func(t *testing.T) {
		s := New()
		cfg := seedConfiguration(t, s)

		got, _ := s.GetConfiguration(ctx, cfg.ID)
		got.CustomOptions["required_completion"] = 0.1

		again, _ := s.GetConfiguration(ctx, cfg.ID)
		if again.CustomOptions["required_completion"] != 0.8 {
			t.Errorf("expected stored options unchanged, got %v", again.CustomOptions)
		}
	})
}

func TestStore_DeleteCascade(t *testing.T) {
	ctx := context.Background()

	t.Run("deleting task deletes configuration", func(t *testing.T) {
		s := New()
		cfg := seedConfiguration(t, s)

		if err := s.DeletePeriodicTask(ctx, cfg.PeriodicTaskID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := s.GetConfiguration(ctx, cfg.ID); !errors.Is(err, credentials.ErrNotFound) {
			t.Errorf("expected configuration deleted, got %v", err)
		}
	})

	t.Run("credentials restrict deletion", func(t *testing.T) {
		s := New()
		cfg := seedConfiguration(t, s)
		if err := s.CreateCredential(ctx, models.NewCredential(7, cfg.ID)); err != nil {
			t.Fatalf("create credential: %v", err)
		}

		if err := s.DeleteConfiguration(ctx, cfg.ID); !errors.Is(err, credentials.ErrConfigurationInUse) {
			t.Errorf("expected ErrConfigurationInUse, got %v", err)
		}
		if err := s.DeletePeriodicTask(ctx, cfg.PeriodicTaskID); !errors.Is(err, credentials.ErrConfigurationInUse) {
			t.Errorf("expected ErrConfigurationInUse from cascade, got %v", err)
		}
	})
}

func TestStore_UpsertGeneratingCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts then resets the current row", func(t *testing.T) {
		s := New()
		cfg := seedConfiguration(t, s)

		first, err := s.UpsertGeneratingCredential(ctx, newGenerating(7, cfg.ID, "task-1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first.MarkAvailable("https://media.example.com/a.png")
		if err := s.UpdateCredential(ctx, first); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		second, err := s.UpsertGeneratingCredential(ctx, newGenerating(7, cfg.ID, "task-2"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if second.UUID != first.UUID {
			t.Errorf("expected row %s to be reused, got %s", first.UUID, second.UUID)
		}
		if second.Status != models.CredentialStatusGenerating || second.GenerationTaskID != "task-2" {
			t.Errorf("expected generating with task-2, got %s / %s", second.Status, second.GenerationTaskID)
		}
		if second.VerifyUUID != first.VerifyUUID || !second.CreatedAt.Equal(first.CreatedAt) {
			t.Error("expected identity fields kept")
		}
	})

	t.Run("invalidated rows start a new row", func(t *testing.T) {
		s := New()
		cfg := seedConfiguration(t, s)

		old := models.NewCredential(7, cfg.ID)
		old.Status = models.CredentialStatusInvalidated
		if err := s.CreateCredential(ctx, old); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		fresh, err := s.UpsertGeneratingCredential(ctx, newGenerating(7, cfg.ID, ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fresh.UUID == old.UUID {
			t.Error("expected a new row")
		}
		rows, _ := s.ListCredentialsByConfiguration(ctx, cfg.ID)
		if len(rows) != 2 {
			t.Errorf("expected 2 rows, got %d", len(rows))
		}
	})

	t.Run("concurrent calls converge on one row", func(t *testing.T) {
		s := New()
		cfg := seedConfiguration(t, s)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.UpsertGeneratingCredential(ctx, newGenerating(7, cfg.ID, "")); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		rows, _ := s.ListCredentialsByConfiguration(ctx, cfg.ID)
		if len(rows) != 1 {
			t.Errorf("expected 1 row, got %d", len(rows))
		}
	})

	t.Run("second current row is rejected", func(t *testing.T) {
		s := New()
		cfg := seedConfiguration(t, s)

		if err := s.CreateCredential(ctx, models.NewCredential(7, cfg.ID)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.CreateCredential(ctx, models.NewCredential(7, cfg.ID)); !errors.Is(err, credentials.ErrCredentialExists) {
			t.Errorf("expected ErrCredentialExists, got %v", err)
		}
	})

	t.Run("unknown configuration", func(t *testing.T) {
		s := New()
		if _, err := s.UpsertGeneratingCredential(ctx, newGenerating(7, 99, "")); !errors.Is(err, credentials.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func newGenerating(userID, configurationID int64, taskID string) *models.Credential {
	c := models.NewCredential(userID, configurationID)
	c.StartGeneration("Ada Lovelace", "Demo Course", taskID)
	return c
}

func TestStore_Jobs(t *testing.T) {
	ctx := context.Background()
	s := New()

	low := models.NewGenerateAllCredentialsJob()
	high := models.NewGenerateCredentialForUserJob(1, 2)
	_ = s.CreateJob(ctx, low)
	_ = s.CreateJob(ctx, high)

	next, err := s.GetNextPendingJob(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.ID != high.ID {
		t.Errorf("expected high priority job first")
	}
	if next.Status != models.JobStatusRunning {
		t.Errorf("expected claimed job running, got %s", next.Status)
	}

	summary, _ := s.GetJobQueueSummary(ctx)
	if summary.TotalPending != 1 || summary.TotalRunning != 1 {
		t.Errorf("expected 1 pending and 1 running, got %d and %d", summary.TotalPending, summary.TotalRunning)
	}
}

func TestStore_LearningPaths(t *testing.T) {
	ctx := context.Background()
	s := New()

	path := &models.LearningPath{
		Key:         "path-v1:OpenedX+Data+2026+Cohort1",
		DisplayName: "Data Science",
		Steps: []models.LearningPathStep{
			{Order: 1, CourseKey: "course-v1:OpenedX+Stats+2026"},
			{Order: 2, CourseKey: "course-v1:OpenedX+ML+2026"},
		},
	}
	_ = s.CreateLearningPath(ctx, path)
	if err := s.UpsertLearningPathEnrollment(ctx, &models.LearningPathEnrollment{UserID: 3, LearningPathKey: path.Key, IsActive: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paths, _ := s.ListLearningPathsByCourse(ctx, "course-v1:OpenedX+ML+2026")
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}

	enrollments, _ := s.ListLearningPathEnrollments(ctx, path.Key)
	if len(enrollments) != 1 || enrollments[0].UserID != 3 {
		t.Errorf("unexpected enrollments %+v", enrollments)
	}

	if err := s.UpsertLearningPathEnrollment(ctx, &models.LearningPathEnrollment{UserID: 3, LearningPathKey: "path-v1:x+y+z+w"}); !errors.Is(err, credentials.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown path, got %v", err)
	}
}
