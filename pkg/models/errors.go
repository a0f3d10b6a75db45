package models

import "errors"

// Sentinel errors shared by the storage and core layers. Callers match them
// with errors.Is; wrapping adds the operation and task ID.
var (
	// ErrNotFound reports that a referenced task does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrMalformedRecord reports a board or task file that failed to parse.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrAlreadyClaimed reports that another session owns the task.
	ErrAlreadyClaimed = errors.New("task already claimed")

	// ErrNoTaskAvailable reports that no unclaimed intake task is left.
	ErrNoTaskAvailable = errors.New("no task available")
)
