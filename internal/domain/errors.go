package domain

import "errors"

// Error kinds returned by the engine. Every mutating operation either fully
// applies its atomic step or fails with exactly one of these; call sites wrap
// them with fmt.Errorf("...: %w", Err...) so callers can match by kind.
var (
	// ErrValidation marks malformed or insufficient input, e.g. a bid below
	// the minimum increment. Recoverable by correcting the input.
	ErrValidation = errors.New("validation failed")

	// ErrState marks an operation that is invalid for the entity's current
	// lifecycle state, e.g. bidding on a pending or ended auction.
	ErrState = errors.New("invalid state for operation")

	// ErrAuthorization marks an actor that is not permitted to perform the
	// operation, e.g. a seller bidding on their own auction.
	ErrAuthorization = errors.New("not authorized")

	// ErrConflict marks concurrent-write contention. Safe to retry after
	// re-reading state; the only kind clients should retry automatically.
	ErrConflict = errors.New("conflicting concurrent update")

	// ErrNotFound marks an unknown identifier.
	ErrNotFound = errors.New("not found")
)
