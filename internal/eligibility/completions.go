package eligibility

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/MacJediWizard/learning-credentials/internal/options"
)

// CompletionPageSize is the page size requested from the completion aggregator.
const CompletionPageSize = 1000

// DefaultRequiredCompletion is used when required_completion is not configured.
const DefaultRequiredCompletion = 0.9

const (
	optRequiredCompletion  = "required_completion"
	keyCurrentCompletion   = "current_completion"
	keyRequiredCompletion  = "required_completion"
	maxCompletionPageCount = 10000
)

func (r *Retriever) courseCompletions(ctx context.Context, courseKey models.LearningContextKey, opts map[string]any, userID *int64) (Results, error) {
	required := options.Float(opts, optRequiredCompletion, DefaultRequiredCompletion)

	users, err := r.enrollments.CourseEnrollments(ctx, courseKey, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments for %s: %w", courseKey, err)
	}

	idsByUsername := make(map[string]int64, len(users))
	for _, u := range users {
		idsByUsername[u.Username] = u.UserID
	}

	var username string
	if userID != nil {
		if len(users) == 0 {
			return Results{}, nil
		}
		username = users[0].Username
	}

	completions := make(map[string]float64)
	for page := 1; ; page++ {
		if page > maxCompletionPageCount {
			return nil, fmt.Errorf("completion aggregator for %s: too many pages", courseKey)
		}
		result, err := r.completions.CompletionPage(ctx, courseKey, page, CompletionPageSize, username)
		if err != nil {
			return nil, fmt.Errorf("get completions page %d for %s: %w", page, courseKey, err)
		}
		for _, c := range result.Results {
			completions[c.Username] = c.Percent
		}
		if result.Next == "" {
			break
		}
	}

	results := make(Results, len(completions))
	for name, percent := range completions {
		id, ok := idsByUsername[name]
		if !ok {
			continue
		}
		results[id] = Detail{
			KeyIsEligible:         percent >= required,
			keyCurrentCompletion:  percent,
			keyRequiredCompletion: required,
		}
	}

	r.logger.Debug().
		Str("course_key", courseKey.String()).
		Int("users", len(results)).
		Msg("evaluated completions")

	return results, nil
}
