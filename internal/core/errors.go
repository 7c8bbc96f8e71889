package core

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput means no non-blank line was supplied.
	ErrEmptyInput = errors.New("empty input")

	// ErrNoValidRows means input was present but every row was blank after mapping.
	ErrNoValidRows = errors.New("no valid rows")

	// ErrFileUnreadable wraps read and decode failures of an imported file.
	ErrFileUnreadable = errors.New("file unreadable")

	// ErrFileTooLarge is returned when an imported file exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	ErrInvalidMapping    = errors.New("invalid mapping")
	ErrUnknownSchema     = errors.New("unknown schema")
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrImportInProgress is returned when a store already has an import running.
	ErrImportInProgress = errors.New("import already in progress for this store")

	ErrTransformUnavailable = errors.New("transform service not configured")
	ErrTransformFailed      = errors.New("transform service request failed")
)

// ImportError reports a terminal failure of one import attempt with enough
// detail to render a single user-facing message.
type ImportError struct {
	Err       error
	Attempted int    // Raw rows offered to the builder
	Kept      int    // Rows that produced a record
	Reason    string // Underlying cause, e.g. a decoder message
}

func (e *ImportError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("%v: %s", e.Err, e.Reason)
	case errors.Is(e.Err, ErrNoValidRows):
		return fmt.Sprintf("%v (attempted %d, kept %d)", e.Err, e.Attempted, e.Kept)
	default:
		return e.Err.Error()
	}
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
