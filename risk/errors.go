package risk

import "errors"

// The pipeline surfaces every failure as one of these kinds so the HTTP
// boundary can map them to statuses without string matching.
var (
	// ErrValidation marks a request value that could not be coerced to a
	// number. Absent or null values never trigger it; they default to zero.
	ErrValidation = errors.New("validation failed")

	// ErrModelUnavailable means no classifier artifact was loaded at startup.
	ErrModelUnavailable = errors.New("model not loaded")

	// ErrPersistence marks a failed record insert after a successful score.
	ErrPersistence = errors.New("persistence failed")
)
