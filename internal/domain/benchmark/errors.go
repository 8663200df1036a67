package benchmark

import "errors"

// ErrSubmissionNotFound is returned when the submission to benchmark does not exist.
var ErrSubmissionNotFound = errors.New("benchmark submission not found")
