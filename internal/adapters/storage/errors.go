package storage

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrUnsupportedProvider = errors.New("unsupported storage provider")
	ErrIncompleteConfig    = errors.New("storage provider is not fully configured")
)
