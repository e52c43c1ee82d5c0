package lms

import "errors"

// ErrNotFound is returned when the LMS answers 404.
var ErrNotFound = errors.New("not found in LMS")
