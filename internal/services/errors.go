package services

import (
	"errors"

	apierrors "smechannel/internal/errors"
)

// Service errors
var (
	// Snapshot errors
	ErrNoSnapshot = apierrors.NewNotFoundError("analysis snapshot")

	// Export errors
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// Simulation errors
	ErrInvalidParameters = errors.New("invalid simulation parameters")
)
