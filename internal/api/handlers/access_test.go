package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/auth"
	"github.com/MacJediWizard/learning-credentials/internal/lms"
	"github.com/MacJediWizard/learning-credentials/internal/memstore"
	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/rs/zerolog"
)

type fakeEnrollments struct {
	enrolled map[models.LearningContextKey]map[int64]bool
	calls    int
	err      error
}

func (f *fakeEnrollments) IsEnrolled(_ context.Context, key models.LearningContextKey, userID int64) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.enrolled[key][userID], nil
}

func TestAccessChecker(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	const (
		pathCourse   = models.LearningContextKey("course-v1:OpenedX+PathStep+2026")
		publicPath   = models.LearningContextKey("path-v1:OpenedX+Open+2026+all")
		privatePath  = models.LearningContextKey("path-v1:OpenedX+Invite+2026+cohort")
		privateStep  = models.LearningContextKey("course-v1:OpenedX+InviteStep+2026")
		missingPath  = models.LearningContextKey("path-v1:OpenedX+Missing+2026+none")
		activeUser   = int64(10)
		inactiveUser = int64(11)
	)

	paths := []*models.LearningPath{
		{Key: publicPath, DisplayName: "Open Path", Steps: []models.LearningPathStep{{Order: 1, CourseKey: pathCourse}}, CreatedAt: time.Now()},
		{Key: privatePath, DisplayName: "Invite Path", InviteOnly: true, Steps: []models.LearningPathStep{{Order: 1, CourseKey: privateStep}}, CreatedAt: time.Now()},
	}
	for _, p := range paths {
		if err := store.CreateLearningPath(ctx, p); err != nil {
			t.Fatalf("create path: %v", err)
		}
	}
	for userID, active := range map[int64]bool{activeUser: true, inactiveUser: false} {
		e := &models.LearningPathEnrollment{UserID: userID, LearningPathKey: privatePath, IsActive: active, CreatedAt: time.Now()}
		if err := store.UpsertLearningPathEnrollment(ctx, e); err != nil {
			t.Fatalf("enroll: %v", err)
		}
	}

	enrollments := &fakeEnrollments{enrolled: map[models.LearningContextKey]map[int64]bool{
		testCourse: {activeUser: true},
	}}
	checker := NewAccessChecker(enrollments, store, zerolog.Nop())

	tests := []struct {
		name   string
		user   *auth.SessionUser
		key    models.LearningContextKey
		expect bool
	}{
		{name: "enrolled in course", user: &auth.SessionUser{ID: activeUser}, key: testCourse, expect: true},
		{name: "not enrolled in course", user: &auth.SessionUser{ID: inactiveUser}, key: testCourse, expect: false},
		{name: "course in public path", user: &auth.SessionUser{ID: inactiveUser}, key: pathCourse, expect: true},
		{name: "course in private path with active enrollment", user: &auth.SessionUser{ID: activeUser}, key: privateStep, expect: true},
		{name: "course in private path with inactive enrollment", user: &auth.SessionUser{ID: inactiveUser}, key: privateStep, expect: false},
		{name: "public path", user: &auth.SessionUser{ID: 99}, key: publicPath, expect: true},
		{name: "private path active", user: &auth.SessionUser{ID: activeUser}, key: privatePath, expect: true},
		{name: "private path inactive", user: &auth.SessionUser{ID: inactiveUser}, key: privatePath, expect: false},
		{name: "private path not enrolled", user: &auth.SessionUser{ID: 99}, key: privatePath, expect: false},
		{name: "missing path", user: &auth.SessionUser{ID: activeUser}, key: missingPath, expect: false},
		{name: "staff", user: &auth.SessionUser{ID: 99, IsStaff: true}, key: privatePath, expect: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := checker.CanAccess(ctx, tt.user, tt.key)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Errorf("expected %v, got %v", tt.expect, got)
			}
		})
	}

	t.Run("staff skips enrollment lookup", func(t *testing.T) {
		before := enrollments.calls
		if _, err := checker.CanAccess(ctx, &auth.SessionUser{ID: 1, IsStaff: true}, testCourse); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if enrollments.calls != before {
			t.Error("expected no enrollment lookup for staff")
		}
	})

	t.Run("unknown course in LMS", func(t *testing.T) {
		c := NewAccessChecker(&fakeEnrollments{err: lms.ErrNotFound}, store, zerolog.Nop())
		ok, err := c.CanAccess(ctx, &auth.SessionUser{ID: 1}, testCourse)
		if err != nil || ok {
			t.Errorf("expected no access without error, got %v, %v", ok, err)
		}
	})

	t.Run("LMS failure", func(t *testing.T) {
		c := NewAccessChecker(&fakeEnrollments{err: errors.New("timeout")}, store, zerolog.Nop())
		if _, err := c.CanAccess(ctx, &auth.SessionUser{ID: 1}, testCourse); err == nil {
			t.Error("expected error")
		}
	})
}
