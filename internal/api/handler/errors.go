package handler

import (
	"errors"
	"net/http"

	"github.com/gigmarket/contract-hub/internal/core/domain"
)

// publicErrors are reported to clients with their own message; anything
// else in the same kind falls back to the message of the kind.
var publicErrors = []error{
	domain.ErrInvalidCredentials,
	domain.ErrInvalidToken,
	domain.ErrNotJobOwner,
	domain.ErrNotContractParty,
	domain.ErrUserNotFound,
	domain.ErrJobNotFound,
	domain.ErrProposalNotFound,
	domain.ErrContractNotFound,
	domain.ErrUserExists,
	domain.ErrJobClosed,
}

// ErrorStatus maps a domain error to an HTTP status and the message safe to
// show the caller. ok is false for errors outside the domain taxonomy.
func ErrorStatus(err error) (code int, msg string, ok bool) {
	code, ok = kindStatus(err)
	if !ok {
		return http.StatusInternalServerError, "internal server error", false
	}
	for _, target := range publicErrors {
		if errors.Is(err, target) {
			return code, target.Error(), true
		}
	}
	if code == http.StatusBadRequest {
		return code, err.Error(), true
	}
	return code, http.StatusText(code), true
}

func kindStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, true
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, true
	case errors.Is(err, domain.ErrMalformed):
		return http.StatusBadRequest, true
	}
	return 0, false
}
