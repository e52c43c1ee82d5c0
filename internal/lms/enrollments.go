package lms

import (
	"context"
	"errors"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/models"
)

type enrollmentResponse struct {
	Next    string            `json:"next"`
	Results []enrollmentEntry `json:"results"`
}

type enrollmentEntry struct {
	User     string `json:"user"`
	CourseID string `json:"course_id"`
	IsActive bool   `json:"is_active"`
	Mode     string `json:"mode"`
}

// CourseEnrollments lists active enrollments of a course. When userID is set
// only that user's enrollment is returned. Usernames unknown locally are skipped.
func (c *Client) CourseEnrollments(ctx context.Context, courseKey models.LearningContextKey, userID *int64) ([]models.CourseEnrollment, error) {
	query := map[string]string{"course_id": courseKey.String()}
	if userID != nil {
		user, err := c.users.GetUserByID(ctx, *userID)
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", *userID, err)
		}
		query["username"] = user.Username
	}

	var entries []enrollmentEntry
	for page := 1; ; {
		query["page"] = fmt.Sprint(page)
		var resp enrollmentResponse
		if err := c.get(ctx, "/api/enrollment/v1/enrollments/", query, &resp); err != nil {
			if errors.Is(err, ErrNotFound) {
				break
			}
			return nil, fmt.Errorf("list enrollments: %w", err)
		}
		entries = append(entries, resp.Results...)

		next, ok := nextPage(resp.Next)
		if !ok {
			break
		}
		page = next
	}

	usernames := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsActive {
			usernames = append(usernames, e.User)
		}
	}
	if len(usernames) == 0 {
		return nil, nil
	}

	users, err := c.users.GetUsersByUsernames(ctx, usernames)
	if err != nil {
		return nil, fmt.Errorf("resolve enrolled users: %w", err)
	}

	enrollments := make([]models.CourseEnrollment, 0, len(usernames))
	for _, name := range usernames {
		u, ok := users[name]
		if !ok {
			c.logger.Debug().Str("username", name).Str("course_key", courseKey.String()).Msg("skipping enrollment of unknown user")
			continue
		}
		enrollments = append(enrollments, models.CourseEnrollment{
			UserID:    u.ID,
			Username:  u.Username,
			CourseKey: courseKey,
			IsActive:  true,
		})
	}
	return enrollments, nil
}

// IsEnrolled reports whether the user holds an active enrollment in the course.
func (c *Client) IsEnrolled(ctx context.Context, courseKey models.LearningContextKey, userID int64) (bool, error) {
	enrollments, err := c.CourseEnrollments(ctx, courseKey, &userID)
	if err != nil {
		return false, err
	}
	return len(enrollments) > 0, nil
}
