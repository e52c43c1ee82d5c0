// Package eligibility decides which learners qualify for a credential in a
// course or learning path.
package eligibility

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/MacJediWizard/learning-credentials/internal/registry"
	"github.com/rs/zerolog"
)

// Registered retrieval function names.
const (
	FuncSubsectionGrades     = "learning_credentials.retrieve_subsection_grades"
	FuncCompletions          = "learning_credentials.retrieve_completions"
	FuncCompletionsAndGrades = "learning_credentials.retrieve_completions_and_grades"
)

// Detail keys shared by every retrieval function.
const (
	KeyIsEligible = "is_eligible"
	KeySteps      = "steps"
)

// Detail is the per-user evidence produced by a retrieval function.
// It always carries the is_eligible flag.
type Detail map[string]any

// IsEligible returns the is_eligible flag.
func (d Detail) IsEligible() bool {
	v, _ := d[KeyIsEligible].(bool)
	return v
}

// Results maps user ids to their eligibility detail.
type Results map[int64]Detail

// EligibleUserIDs returns the ids whose detail is eligible.
func (r Results) EligibleUserIDs() []int64 {
	ids := make([]int64, 0, len(r))
	for id, d := range r {
		if d.IsEligible() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Func computes eligibility for every enrolled user of a learning context,
// or only for userID when it is non-nil.
type Func func(ctx context.Context, key models.LearningContextKey, opts map[string]any, userID *int64) (Results, error)

// Registry holds the retrieval functions credential types may reference.
type Registry = registry.Registry[Func]

// NewRegistry creates an empty retrieval function registry.
func NewRegistry() *Registry {
	return registry.New[Func]()
}

// SubsectionGrade is the score of one graded subsection.
type SubsectionGrade struct {
	Format   string
	Earned   float64
	Possible float64
}

// CompletionResult is one row of the completion aggregator.
type CompletionResult struct {
	Username string
	Percent  float64
}

// CompletionPage is one page of completion aggregator results.
// Next is empty on the last page.
type CompletionPage struct {
	Results []CompletionResult
	Next    string
}

// GradeSource provides graded-subsection scores and the grading policy.
type GradeSource interface {
	// GradingPolicy returns assignment type to weight.
	GradingPolicy(ctx context.Context, courseKey models.LearningContextKey) (map[string]float64, error)
	SubsectionGrades(ctx context.Context, courseKey models.LearningContextKey, users []models.CourseEnrollment) (map[int64][]SubsectionGrade, error)
}

// CompletionSource provides paginated completion percentages.
type CompletionSource interface {
	CompletionPage(ctx context.Context, courseKey models.LearningContextKey, page, pageSize int, username string) (*CompletionPage, error)
}

// EnrollmentSource lists active course enrollments.
type EnrollmentSource interface {
	CourseEnrollments(ctx context.Context, courseKey models.LearningContextKey, userID *int64) ([]models.CourseEnrollment, error)
}

// LearningPathSource provides learning paths and their enrollments.
type LearningPathSource interface {
	GetLearningPath(ctx context.Context, key models.LearningContextKey) (*models.LearningPath, error)
	ListLearningPathEnrollments(ctx context.Context, key models.LearningContextKey) ([]models.LearningPathEnrollment, error)
}

// courseFunc evaluates a single course.
type courseFunc func(ctx context.Context, courseKey models.LearningContextKey, opts map[string]any, userID *int64) (Results, error)

// Retriever implements the built-in retrieval functions.
type Retriever struct {
	grades      GradeSource
	completions CompletionSource
	enrollments EnrollmentSource
	paths       LearningPathSource
	logger      zerolog.Logger
}

// NewRetriever creates a Retriever over the given data sources.
func NewRetriever(grades GradeSource, completions CompletionSource, enrollments EnrollmentSource, paths LearningPathSource, logger zerolog.Logger) *Retriever {
	return &Retriever{
		grades:      grades,
		completions: completions,
		enrollments: enrollments,
		paths:       paths,
		logger:      logger.With().Str("component", "eligibility").Logger(),
	}
}

// Register adds the built-in retrieval functions to reg.
func (r *Retriever) Register(reg *Registry) {
	reg.Register(FuncSubsectionGrades, r.SubsectionGrades)
	reg.Register(FuncCompletions, r.Completions)
	reg.Register(FuncCompletionsAndGrades, r.CompletionsAndGrades)
}

// SubsectionGrades evaluates weighted grades against required_grades.
func (r *Retriever) SubsectionGrades(ctx context.Context, key models.LearningContextKey, opts map[string]any, userID *int64) (Results, error) {
	return r.dispatch(ctx, key, opts, userID, r.courseSubsectionGrades)
}

// Completions evaluates completion percentages against required_completion.
func (r *Retriever) Completions(ctx context.Context, key models.LearningContextKey, opts map[string]any, userID *int64) (Results, error) {
	return r.dispatch(ctx, key, opts, userID, r.courseCompletions)
}

func (r *Retriever) dispatch(ctx context.Context, key models.LearningContextKey, opts map[string]any, userID *int64, perCourse courseFunc) (Results, error) {
	switch {
	case key.IsCourse():
		return perCourse(ctx, key, opts, userID)
	case key.IsLearningPath():
		return r.learningPath(ctx, key, opts, userID, perCourse)
	default:
		return nil, fmt.Errorf("retrieve eligibility: %w", key.Validate())
	}
}
