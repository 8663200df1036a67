package processing

import "errors"

// Sentinel kinds for processing errors.
var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrDrillNotFound      = errors.New("drill definition not found")
	ErrNotPending         = errors.New("submission is not pending")
)
