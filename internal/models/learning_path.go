package models

import (
	"sort"
	"time"
)

// LearningPath is an ordered sequence of courses.
type LearningPath struct {
	Key         LearningContextKey `json:"key"`
	DisplayName string             `json:"display_name"`
	InviteOnly  bool               `json:"invite_only"`
	Steps       []LearningPathStep `json:"steps"`
	CreatedAt   time.Time          `json:"created_at"`
}

// LearningPathStep is one course inside a learning path.
type LearningPathStep struct {
	Order     int                `json:"order"`
	CourseKey LearningContextKey `json:"course_key"`
}

// LearningPathEnrollment records a user's membership in a learning path.
type LearningPathEnrollment struct {
	UserID          int64              `json:"user_id"`
	LearningPathKey LearningContextKey `json:"learning_path_key"`
	IsActive        bool               `json:"is_active"`
	CreatedAt       time.Time          `json:"created_at"`
}

// CourseEnrollment records a user's enrollment in a course, as reported by the LMS.
type CourseEnrollment struct {
	UserID    int64              `json:"user_id"`
	Username  string             `json:"username"`
	CourseKey LearningContextKey `json:"course_key"`
	IsActive  bool               `json:"is_active"`
}

// OrderedSteps returns the steps sorted by their order.
func (p *LearningPath) OrderedSteps() []LearningPathStep {
	steps := make([]LearningPathStep, len(p.Steps))
	copy(steps, p.Steps)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})
	return steps
}

// HasCourse reports whether the course is one of the path's steps.
func (p *LearningPath) HasCourse(courseKey LearningContextKey) bool {
	for _, s := range p.Steps {
		if s.CourseKey == courseKey {
			return true
		}
	}
	return false
}
