package processing

import (
	"errors"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/internal/domain/retention"
)

// Result is the outcome of one processing call. Benchmark and purge
// outcomes are reported separately and never change OK.
type Result struct {
	SubmissionID   string                   `json:"submissionId"`
	OK             bool                     `json:"ok"`
	Skipped        bool                     `json:"skipped,omitempty"`
	Status         model.ProcessingStatus   `json:"status,omitempty"`
	Attempt        int                      `json:"attempt"`
	Error          string                   `json:"error,omitempty"`
	Benchmark      *model.BenchmarkSnapshot `json:"benchmark,omitempty"`
	BenchmarkError string                   `json:"benchmarkError,omitempty"`
	Purge          *retention.Outcome       `json:"purge,omitempty"`
	Err            error                    `json:"-"`
}

func (r Result) fail(err error) Result {
	r.OK = false
	r.Err = err
	r.Error = err.Error()
	return r
}

// NotFound reports whether the submission or its drill was missing.
func (r Result) NotFound() bool {
	return errors.Is(r.Err, ErrSubmissionNotFound) || errors.Is(r.Err, ErrDrillNotFound)
}
