package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these so
// callers can classify with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("access forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrMalformed       = errors.New("malformed payload")
	ErrTransport       = errors.New("transport failure")
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrUnauthenticated)

	ErrNotJobOwner      = fmt.Errorf("%w: proposals can only be accepted by the job owner", ErrForbidden)
	ErrNotContractParty = fmt.Errorf("%w: not a party to this contract", ErrForbidden)

	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrJobNotFound      = fmt.Errorf("job %w", ErrNotFound)
	ErrProposalNotFound = fmt.Errorf("proposal %w", ErrNotFound)
	ErrContractNotFound = fmt.Errorf("contract %w", ErrNotFound)

	ErrUserExists = fmt.Errorf("%w: user already exists", ErrConflict)
	ErrJobClosed  = fmt.Errorf("%w: job already closed", ErrConflict)

	ErrInvalidInput = fmt.Errorf("%w: invalid input", ErrMalformed)
)
