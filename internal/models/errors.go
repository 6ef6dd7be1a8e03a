package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services. Handlers translate these into
// HTTP status codes; storage error text never reaches clients.
var (
	// ErrNotFound covers both a missing record and an event in the
	// wrong status for the requested transition.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller's role or ownership
	// check fails. Handlers translate this into a 403.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict signals a transaction isolation abort. It is safe to
	// retry, unlike the domain errors above.
	ErrConflict = errors.New("transaction conflict")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

// CapacityError reports insufficient remaining seats. It carries the
// actual remaining count so the caller can build its message.
type CapacityError struct {
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("only %d seats remaining", e.Remaining)
}
