package download

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskNotFound is returned for an unknown task ID
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTransition is returned when a request does not apply to the
	// task's current state. The task is left unchanged.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrPauseUnsupported is returned by Pause when the engine cannot pause
	ErrPauseUnsupported = errors.New("pause is not supported by the current engine")

	// ErrEmptySource is returned when submitting a blank source
	ErrEmptySource = errors.New("empty source")

	// ErrDuplicateTask is returned when the source already has a live task
	ErrDuplicateTask = errors.New("task already exists for source")
)

// MetadataError is a failed name resolution. It never affects task state.
type MetadataError struct {
	TaskID string
	Err    error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("metadata for %s: %v", e.TaskID, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }
