package eligibility

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/MacJediWizard/learning-credentials/internal/options"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownCategory is returned when a user has a grade in an assignment
// category that the course grading policy does not define.
var ErrUnknownCategory = errors.New("unknown grade category")

// TotalKey is the required_grades key checked against the weighted total.
const TotalKey = "total"

const (
	optRequiredGrades = "required_grades"
	keyCurrentGrades  = "current_grades"
	keyRequiredGrades = "required_grades"
	percentMultiplier = 100.0
)

func (r *Retriever) courseSubsectionGrades(ctx context.Context, courseKey models.LearningContextKey, opts map[string]any, userID *int64) (Results, error) {
	required := requiredGrades(opts)

	users, err := r.enrollments.CourseEnrollments(ctx, courseKey, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments for %s: %w", courseKey, err)
	}

	policy, err := r.grades.GradingPolicy(ctx, courseKey)
	if err != nil {
		return nil, fmt.Errorf("get grading policy for %s: %w", courseKey, err)
	}
	weights := lowerKeys(policy)

	subsections, err := r.grades.SubsectionGrades(ctx, courseKey, users)
	if err != nil {
		return nil, fmt.Errorf("get subsection grades for %s: %w", courseKey, err)
	}

	results := make(Results, len(users))
	for _, u := range users {
		grades := gradesByFormat(subsections[u.UserID])
		total := weightedTotal(grades, weights)

		eligible, err := gradesPassing(grades, total, required, weights)
		if err != nil {
			return nil, fmt.Errorf("user %d in %s: %w", u.UserID, courseKey, err)
		}

		current := make(map[string]any, len(grades)+1)
		for category, grade := range grades {
			current[category] = grade
		}
		current[TotalKey] = total

		results[u.UserID] = Detail{
			KeyIsEligible:     eligible,
			keyCurrentGrades:  current,
			keyRequiredGrades: toAnyMap(required),
		}
	}

	r.logger.Debug().
		Str("course_key", courseKey.String()).
		Int("users", len(results)).
		Msg("evaluated subsection grades")

	return results, nil
}

// requiredGrades reads required_grades, lowercasing keys and converting the
// fractional thresholds to percentages.
func requiredGrades(opts map[string]any) map[string]float64 {
	raw := options.Map(opts, optRequiredGrades)
	lower := cases.Lower(language.Und)
	required := make(map[string]float64, len(raw))
	for k := range raw {
		required[lower.String(k)] = options.Float(raw, k, 0) * percentMultiplier
	}
	return required
}

// gradesByFormat sums earned and possible points per assignment format and
// returns a percentage per lowercased format.
func gradesByFormat(subsections []SubsectionGrade) map[string]float64 {
	type sums struct{ earned, possible float64 }
	lower := cases.Lower(language.Und)
	byFormat := make(map[string]*sums)
	for _, s := range subsections {
		format := lower.String(s.Format)
		acc, ok := byFormat[format]
		if !ok {
			acc = &sums{}
			byFormat[format] = acc
		}
		acc.earned += s.Earned
		acc.possible += s.Possible
	}

	grades := make(map[string]float64, len(byFormat))
	for format, acc := range byFormat {
		if acc.possible > 0 {
			grades[format] = acc.earned / acc.possible * percentMultiplier
		} else {
			grades[format] = 0
		}
	}
	return grades
}

// weightedTotal sums grade times weight over the categories the policy defines.
func weightedTotal(grades, weights map[string]float64) float64 {
	var total float64
	for category, grade := range grades {
		if weight, ok := weights[category]; ok {
			total += grade * weight
		}
	}
	return total
}

// gradesPassing applies the required_grades criteria to one user.
func gradesPassing(grades map[string]float64, total float64, required, weights map[string]float64) (bool, error) {
	if len(required) == 0 {
		return true, nil
	}
	if len(grades) == 0 {
		return false, nil
	}

	for category, threshold := range required {
		if category == TotalKey {
			continue
		}
		grade, ok := grades[category]
		if !ok || grade < threshold {
			return false, nil
		}
	}

	categories := make([]string, 0, len(grades))
	for category := range grades {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		if _, ok := weights[category]; !ok {
			return false, fmt.Errorf("%w: category %s is not in the grading policy", ErrUnknownCategory, category)
		}
	}

	if threshold, ok := required[TotalKey]; ok && total < threshold {
		return false, nil
	}
	return true, nil
}

func lowerKeys(m map[string]float64) map[string]float64 {
	lower := cases.Lower(language.Und)
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[lower.String(k)] = v
	}
	return out
}

func toAnyMap(m map[string]float64) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
