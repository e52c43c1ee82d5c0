package eligibility

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/MacJediWizard/learning-credentials/internal/options"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentSteps bounds concurrent per-step evaluations.
const maxConcurrentSteps = 4

// learningPath evaluates perCourse on every step of the path. A user is
// eligible for the path only when eligible in every step and actively
// enrolled in the path.
func (r *Retriever) learningPath(ctx context.Context, key models.LearningContextKey, opts map[string]any, userID *int64, perCourse courseFunc) (Results, error) {
	path, err := r.paths.GetLearningPath(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get learning path %s: %w", key, err)
	}
	steps := path.OrderedSteps()

	stepResults := make([]Results, len(steps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSteps)
	for i, step := range steps {
		g.Go(func() error {
			stepOpts := options.ForStep(opts, step.CourseKey.String())
			res, err := perCourse(gctx, step.CourseKey, stepOpts, userID)
			if err != nil {
				return fmt.Errorf("step %s: %w", step.CourseKey, err)
			}
			stepResults[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate learning path %s: %w", key, err)
	}

	enrollments, err := r.paths.ListLearningPathEnrollments(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list learning path enrollments for %s: %w", key, err)
	}
	active := make(map[int64]bool, len(enrollments))
	for _, e := range enrollments {
		if e.IsActive {
			active[e.UserID] = true
		}
	}

	users := make(map[int64]struct{})
	for _, res := range stepResults {
		for id := range res {
			if userID == nil || id == *userID {
				users[id] = struct{}{}
			}
		}
	}

	results := make(Results, len(users))
	for id := range users {
		eligible := len(steps) > 0 && active[id]
		stepDetails := make(map[string]any, len(steps))
		for i, step := range steps {
			d, ok := stepResults[i][id]
			if !ok {
				eligible = false
				continue
			}
			if !d.IsEligible() {
				eligible = false
			}
			stepDetails[step.CourseKey.String()] = map[string]any(d)
		}
		results[id] = Detail{
			KeyIsEligible: eligible,
			KeySteps:      stepDetails,
		}
	}

	r.logger.Debug().
		Str("learning_path", key.String()).
		Int("steps", len(steps)).
		Int("users", len(results)).
		Msg("evaluated learning path")

	return results, nil
}
