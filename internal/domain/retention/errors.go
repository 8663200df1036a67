package retention

import "errors"

// ErrMissingStorageRef is recorded when a submission has no provider or key to delete.
var ErrMissingStorageRef = errors.New("missing storage provider or key")
