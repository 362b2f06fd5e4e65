package workflow

import "errors"

var (
	// ErrInvalidStatus is returned for a status outside the record kind's enum.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrTerminal is returned when the record is already in a terminal status.
	ErrTerminal = errors.New("record is in a terminal status")
	// ErrTransitionNotAllowed is returned when the transition table has no such edge.
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	// ErrForbidden is returned when the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotCancellable is returned when a cancellation window has closed.
	ErrNotCancellable = errors.New("record can no longer be cancelled")
	// ErrNotDeletable is returned when a submitter tries to delete a processed record.
	ErrNotDeletable = errors.New("record can no longer be deleted")
	// ErrConflict is returned when a conditional update lost a race or a unique
	// constraint rejected the write.
	ErrConflict = errors.New("conflict")
)
