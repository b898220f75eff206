// Package errs defines the engine's error taxonomy. Every operation failure
// maps to exactly one of these sentinels and aborts the whole operation; the
// surrounding transaction is rolled back, so no partial state is observable.
package errs

import "errors"

var (
	// ErrUnauthorized means the caller lacks the required role or ownership.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidArgument means an input is out of range (zero amount,
	// fee percentage above the cap, unknown duration).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound means the referenced asset, tier, or subscription is absent.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists means a duplicate tier or a live subscription blocks
	// the operation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInsufficientBalance means the payer cannot cover a transfer leg.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Terminal reports whether err belongs to the engine taxonomy. Taxonomy
// errors are caller mistakes, not infrastructure failures, and are not
// worth reporting or retrying.
func Terminal(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrInsufficientBalance)
}
