package lms

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/MacJediWizard/learning-credentials/internal/eligibility"
	"github.com/MacJediWizard/learning-credentials/internal/models"
)

type completionResponse struct {
	Pagination struct {
		Next *string `json:"next"`
	} `json:"pagination"`
	Results []struct {
		Username   string `json:"username"`
		Completion struct {
			Percent float64 `json:"percent"`
		} `json:"completion"`
	} `json:"results"`
}

// CompletionPage returns one page of the completion aggregator for a course.
func (c *Client) CompletionPage(ctx context.Context, courseKey models.LearningContextKey, page, pageSize int, username string) (*eligibility.CompletionPage, error) {
	query := map[string]string{
		"page":      strconv.Itoa(page),
		"page_size": strconv.Itoa(pageSize),
	}
	if username != "" {
		query["username"] = username
	}

	var resp completionResponse
	path := "/completion-aggregator/v1/course/" + url.PathEscape(courseKey.String()) + "/"
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("get completions: %w", err)
	}

	out := &eligibility.CompletionPage{
		Results: make([]eligibility.CompletionResult, 0, len(resp.Results)),
	}
	if resp.Pagination.Next != nil {
		out.Next = *resp.Pagination.Next
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, eligibility.CompletionResult{
			Username: r.Username,
			Percent:  r.Completion.Percent,
		})
	}
	return out, nil
}
