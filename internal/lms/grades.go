package lms

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/MacJediWizard/learning-credentials/internal/eligibility"
	"github.com/MacJediWizard/learning-credentials/internal/models"
)

const gradebookPageSize = 200

type gradingPolicyEntry struct {
	AssignmentType string  `json:"assignment_type"`
	Count          int     `json:"count"`
	Dropped        int     `json:"dropped"`
	Weight         float64 `json:"weight"`
}

type gradebookResponse struct {
	Next    string           `json:"next"`
	Results []gradebookEntry `json:"results"`
}

type gradebookEntry struct {
	UserID           int64             `json:"user_id"`
	Username         string            `json:"username"`
	SectionBreakdown []sectionBreakout `json:"section_breakdown"`
}

type sectionBreakout struct {
	Category      string  `json:"category"`
	Label         string  `json:"label"`
	SubsectionID  string  `json:"module_id"`
	ScoreEarned   float64 `json:"score_earned"`
	ScorePossible float64 `json:"score_possible"`
	IsGraded      *bool   `json:"is_graded,omitempty"`
}

// GradingPolicy returns the assignment type weights of a course.
func (c *Client) GradingPolicy(ctx context.Context, courseKey models.LearningContextKey) (map[string]float64, error) {
	var policy []gradingPolicyEntry
	path := "/api/grades/v1/policy/courses/" + url.PathEscape(courseKey.String()) + "/"
	if err := c.get(ctx, path, nil, &policy); err != nil {
		return nil, fmt.Errorf("get grading policy: %w", err)
	}

	weights := make(map[string]float64, len(policy))
	for _, p := range policy {
		weights[p.AssignmentType] = p.Weight
	}
	return weights, nil
}

// SubsectionGrades returns graded subsection scores for the given users.
func (c *Client) SubsectionGrades(ctx context.Context, courseKey models.LearningContextKey, users []models.CourseEnrollment) (map[int64][]eligibility.SubsectionGrade, error) {
	grades := make(map[int64][]eligibility.SubsectionGrade, len(users))
	if len(users) == 0 {
		return grades, nil
	}

	wanted := make(map[int64]bool, len(users))
	for _, u := range users {
		wanted[u.UserID] = true
	}

	query := map[string]string{"page_size": strconv.Itoa(gradebookPageSize)}
	if len(users) == 1 {
		query["username"] = users[0].Username
	}

	path := "/api/grades/v1/gradebook/" + url.PathEscape(courseKey.String()) + "/"
	for page := 1; ; {
		query["page"] = strconv.Itoa(page)
		var resp gradebookResponse
		if err := c.get(ctx, path, query, &resp); err != nil {
			return nil, fmt.Errorf("get gradebook page %d: %w", page, err)
		}

		for _, entry := range resp.Results {
			if !wanted[entry.UserID] {
				continue
			}
			for _, s := range entry.SectionBreakdown {
				if s.IsGraded != nil && !*s.IsGraded {
					continue
				}
				if s.Category == "" {
					continue
				}
				grades[entry.UserID] = append(grades[entry.UserID], eligibility.SubsectionGrade{
					Format:   s.Category,
					Earned:   s.ScoreEarned,
					Possible: s.ScorePossible,
				})
			}
		}

		next, ok := nextPage(resp.Next)
		if !ok {
			break
		}
		page = next
	}

	return grades, nil
}
