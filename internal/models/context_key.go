package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidContextKey is returned for malformed learning context keys.
var ErrInvalidContextKey = errors.New("Invalid learning context key")

const (
	// CourseKeyPrefix prefixes course keys: course-v1:Org+Number+Run.
	CourseKeyPrefix = "course-v1:"
	// LearningPathKeyPrefix prefixes learning path keys: path-v1:Org+Number+Run+Group.
	LearningPathKeyPrefix = "path-v1:"
)

var (
	keyPart        = `[A-Za-z0-9_.\-~]+`
	courseKeyRe    = regexp.MustCompile(`^course-v1:` + keyPart + `\+` + keyPart + `\+` + keyPart + `$`)
	learningPathRe = regexp.MustCompile(`^path-v1:` + keyPart + `\+` + keyPart + `\+` + keyPart + `\+` + keyPart + `$`)
)

// LearningContextKey identifies a course or a learning path.
type LearningContextKey string

// ParseLearningContextKey validates s and returns it as a LearningContextKey.
func ParseLearningContextKey(s string) (LearningContextKey, error) {
	key := LearningContextKey(strings.TrimSpace(s))
	if err := key.Validate(); err != nil {
		return "", err
	}
	return key, nil
}

// Validate returns ErrInvalidContextKey when the key is neither a course nor a learning path key.
func (k LearningContextKey) Validate() error {
	if !k.IsCourse() && !k.IsLearningPath() {
		return fmt.Errorf("%w: %q", ErrInvalidContextKey, string(k))
	}
	return nil
}

// IsCourse reports whether the key identifies a course.
func (k LearningContextKey) IsCourse() bool {
	return courseKeyRe.MatchString(string(k))
}

// IsLearningPath reports whether the key identifies a learning path.
func (k LearningContextKey) IsLearningPath() bool {
	return learningPathRe.MatchString(string(k))
}

// String returns the key as a string.
func (k LearningContextKey) String() string {
	return string(k)
}
