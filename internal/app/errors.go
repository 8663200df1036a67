package service

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidUpload    = errors.New("invalid upload")
	ErrConsentRequired  = errors.New("parental approval is required before drill submissions for minors")
	ErrAthleteNotFound  = errors.New("athlete not found")
	ErrDrillUnavailable = errors.New("invalid drill")
	ErrUploadFailed     = errors.New("submission failed")
	ErrServiceStopped   = errors.New("service stopped")
)
