package repository

import (
	"errors"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
)

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = model.ErrNotFound
	ErrInvalidLimit = errors.New("invalid limit")
	ErrUnsupported  = errors.New("unsupported database driver")
)
