package lms

import (
	"context"
	"fmt"
	"net/url"

	"github.com/MacJediWizard/learning-credentials/internal/models"
)

type courseResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CourseName returns the display name of a course.
func (c *Client) CourseName(ctx context.Context, courseKey models.LearningContextKey) (string, error) {
	var resp courseResponse
	path := "/api/courses/v1/courses/" + url.PathEscape(courseKey.String()) + "/"
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return "", fmt.Errorf("get course: %w", err)
	}
	return resp.Name, nil
}
