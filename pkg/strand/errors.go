package strand

import "errors"

var (
	// ErrInitFuncNil is returned by New when no initializer is provided.
	ErrInitFuncNil = errors.New("strand: init function cannot be nil")

	// ErrOperationNil is returned by Submit when the operation is nil.
	ErrOperationNil = errors.New("strand: operation cannot be nil")

	// ErrAlreadyStarted is returned by Start on repeated calls.
	ErrAlreadyStarted = errors.New("strand: already started")

	// ErrUnavailable means resource initialization failed. The strand is in a
	// terminal state: every queued task has been failed with this error and
	// all future submissions are rejected with it.
	ErrUnavailable = errors.New("strand: resource unavailable")

	// ErrClosed is returned for submissions after Close and delivered to
	// tasks that were still queued when Close was called.
	ErrClosed = errors.New("strand: closed")
)
