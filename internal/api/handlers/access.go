package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/auth"
	"github.com/MacJediWizard/learning-credentials/internal/credentials"
	"github.com/MacJediWizard/learning-credentials/internal/lms"
	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/rs/zerolog"
)

// EnrollmentChecker reports whether a user is enrolled in a course.
type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, courseKey models.LearningContextKey, userID int64) (bool, error)
}

// LearningPathReader reads learning paths and their enrollments.
type LearningPathReader interface {
	GetLearningPath(ctx context.Context, key models.LearningContextKey) (*models.LearningPath, error)
	ListLearningPathsByCourse(ctx context.Context, courseKey models.LearningContextKey) ([]*models.LearningPath, error)
	GetLearningPathEnrollment(ctx context.Context, userID int64, key models.LearningContextKey) (*models.LearningPathEnrollment, error)
}

// AccessChecker decides whether a user may see a learning context.
//
// Staff can see every context. Other users can see a course they are
// enrolled in, or a course that is a step of a public learning path or of a
// path they are actively enrolled in. A learning path is visible when it is
// public or the user is actively enrolled in it.
type AccessChecker struct {
	enrollments EnrollmentChecker
	paths       LearningPathReader
	logger      zerolog.Logger
}

// NewAccessChecker creates an AccessChecker.
func NewAccessChecker(enrollments EnrollmentChecker, paths LearningPathReader, logger zerolog.Logger) *AccessChecker {
	return &AccessChecker{
		enrollments: enrollments,
		paths:       paths,
		logger:      logger.With().Str("component", "access_checker").Logger(),
	}
}

// CanAccess reports whether user may see the learning context.
func (a *AccessChecker) CanAccess(ctx context.Context, user *auth.SessionUser, key models.LearningContextKey) (bool, error) {
	if user.IsStaff {
		return true, nil
	}
	if key.IsLearningPath() {
		return a.canAccessPath(ctx, user.ID, key)
	}
	return a.canAccessCourse(ctx, user.ID, key)
}

func (a *AccessChecker) canAccessCourse(ctx context.Context, userID int64, key models.LearningContextKey) (bool, error) {
	if a.enrollments != nil {
		enrolled, err := a.enrollments.IsEnrolled(ctx, key, userID)
		if err != nil && !errors.Is(err, lms.ErrNotFound) {
			return false, fmt.Errorf("check enrollment in %s: %w", key, err)
		}
		if enrolled {
			return true, nil
		}
	}

	if a.paths == nil {
		return false, nil
	}
	paths, err := a.paths.ListLearningPathsByCourse(ctx, key)
	if err != nil {
		return false, fmt.Errorf("list learning paths of %s: %w", key, err)
	}
	for _, p := range paths {
		if !p.InviteOnly {
			return true, nil
		}
		active, err := a.activeInPath(ctx, userID, p.Key)
		if err != nil {
			return false, err
		}
		if active {
			return true, nil
		}
	}
	return false, nil
}

func (a *AccessChecker) canAccessPath(ctx context.Context, userID int64, key models.LearningContextKey) (bool, error) {
	if a.paths == nil {
		return false, nil
	}
	p, err := a.paths.GetLearningPath(ctx, key)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get learning path %s: %w", key, err)
	}
	if !p.InviteOnly {
		return true, nil
	}
	return a.activeInPath(ctx, userID, key)
}

func (a *AccessChecker) activeInPath(ctx context.Context, userID int64, key models.LearningContextKey) (bool, error) {
	e, err := a.paths.GetLearningPathEnrollment(ctx, userID, key)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get enrollment in %s: %w", key, err)
	}
	return e.IsActive, nil
}
