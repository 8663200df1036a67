// Package model contains domain models passed between layers.
package model

import "errors"

// ProcessingStatus is the lifecycle state of a submission.
type ProcessingStatus string

// Processing lifecycle states.
const (
	StatusQueued     ProcessingStatus = "QUEUED"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusRetrying   ProcessingStatus = "RETRYING"
	StatusFailed     ProcessingStatus = "FAILED"
)

// MaxProcessingAttempts is the failure ceiling: the attempt that reaches it
// moves the submission to FAILED instead of RETRYING.
const MaxProcessingAttempts = 3

// Pending reports whether the status is eligible for batch pickup.
func (s ProcessingStatus) Pending() bool {
	return s == StatusQueued || s == StatusRetrying
}

// Terminal reports whether no further automatic transition leaves s.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the known lifecycle states.
func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusRetrying, StatusFailed:
		return true
	}
	return false
}

// CompressionStatus tags whether an upload exceeded the compression threshold.
type CompressionStatus string

// Compression tags.
const (
	CompressionNotRequired CompressionStatus = "NOT_REQUIRED"
	CompressionCompressed  CompressionStatus = "COMPRESSED"
)

// System log levels.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// System log categories.
const (
	CategoryUpload          = "upload"
	CategoryVideoPurge      = "video-purge"
	CategoryProcessingBatch = "processing-batch"
	CategoryModelVersion    = "model-version"
	CategoryManualOverride  = "manual-override"
)

// DefaultModelVersion is recorded on metric results when no model version is active.
const DefaultModelVersion = "v1.0.0"

// ManualOverrideVersion is recorded on metric results created by an admin override.
const ManualOverrideVersion = "manual-override"

// ErrNotFound is returned by stores when a requested record does not exist.
var ErrNotFound = errors.New("record not found")
