package worker

import "errors"

// Sentinel errors returned by Do.
var (
	ErrStopped     = errors.New("writer stopped")
	ErrJobPanicked = errors.New("job panicked")
)
