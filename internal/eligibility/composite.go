package eligibility

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/MacJediWizard/learning-credentials/internal/options"
	"golang.org/x/sync/errgroup"
)

// CompletionsAndGrades returns the users eligible under both the completion
// and the grade criteria, with both details merged.
func (r *Retriever) CompletionsAndGrades(ctx context.Context, key models.LearningContextKey, opts map[string]any, userID *int64) (Results, error) {
	var completions, grades Results

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		completions, err = r.Completions(gctx, key, opts, userID)
		return err
	})
	g.Go(func() error {
		var err error
		grades, err = r.SubsectionGrades(gctx, key, opts, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("retrieve completions and grades for %s: %w", key, err)
	}

	return Intersect(completions, grades), nil
}

// Intersect keeps the users present and eligible in every result set.
// Each kept detail deep-merges the evidence of all sets, so per-step
// evidence of learning paths is combined rather than replaced.
func Intersect(sets ...Results) Results {
	if len(sets) == 0 {
		return Results{}
	}

	out := make(Results)
	for userID := range sets[0] {
		merged := Detail{}
		eligible := true
		for _, set := range sets {
			d, ok := set[userID]
			if !ok || !d.IsEligible() {
				eligible = false
				break
			}
			merged = options.Merge(merged, d)
		}
		if eligible {
			merged[KeyIsEligible] = true
			out[userID] = merged
		}
	}
	return out
}
