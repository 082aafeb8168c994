package jobs

import "errors"

var (
	// ErrJobTimeout is wrapped by the error of an attempt that exceeded its timeout.
	ErrJobTimeout = errors.New("job timed out")

	// ErrJobPanic is wrapped by the error of an attempt whose work panicked.
	ErrJobPanic = errors.New("job panicked")

	// ErrInvalidJobConfig indicates a negative retry count or delay, a
	// non-positive timeout, or missing work.
	ErrInvalidJobConfig = errors.New("invalid job config")

	// ErrDuplicateJob indicates a job name is already registered.
	ErrDuplicateJob = errors.New("job already registered")

	// ErrUnknownJob indicates a job name is not registered.
	ErrUnknownJob = errors.New("unknown job")
)
