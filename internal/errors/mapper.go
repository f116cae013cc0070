// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Sentinel errors for the voting domain. Services return these (possibly
// wrapped) and the HTTP layer maps them centrally via Map.
var (
	// ErrAuthRequired means there is no valid session. Redirect to login,
	// not retryable in place.
	ErrAuthRequired = errors.New("authentication required")

	// ErrGenderMismatch means the voter is in the wrong queue for their
	// gender. Redirect, never show a pair.
	ErrGenderMismatch = errors.New("wrong voting queue for this account")

	// ErrFetchFailed is a transient failure loading the candidate pool.
	// Retryable; local state is preserved.
	ErrFetchFailed = errors.New("failed to load profiles")

	// ErrDuplicateVote means this voter already voted for this candidate.
	// Benign: the voter's intent is already satisfied.
	ErrDuplicateVote = errors.New("vote already recorded")

	// ErrRateLimited means the cooldown between votes was violated.
	// Retryable after a short wait, no state change.
	ErrRateLimited = errors.New("voting too quickly")

	// ErrBackendError is an unexpected failure recording a vote. Retryable;
	// the current pair is not advanced.
	ErrBackendError = errors.New("failed to record vote")
)

// Response is the JSON error body returned by the API.
type Response struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Map converts domain/infra errors into an HTTP status and JSON body.
// Keeps handlers clean by centralizing error mapping.
func Map(err error) (int, Response) {
	switch {
	case errors.Is(err, ErrAuthRequired):
		return http.StatusUnauthorized, Response{Error: ErrAuthRequired.Error(), Code: "AUTH_REQUIRED"}

	case errors.Is(err, ErrGenderMismatch):
		return http.StatusForbidden, Response{Error: ErrGenderMismatch.Error(), Code: "GENDER_MISMATCH"}

	case errors.Is(err, ErrDuplicateVote):
		return http.StatusConflict, Response{Error: ErrDuplicateVote.Error(), Code: "DUPLICATE_VOTE"}

	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, Response{Error: ErrRateLimited.Error(), Code: "RATE_LIMITED"}

	case errors.Is(err, ErrFetchFailed):
		return http.StatusBadGateway, Response{Error: ErrFetchFailed.Error(), Code: "FETCH_FAILED"}

	case errors.Is(err, ErrBackendError):
		return http.StatusInternalServerError, Response{Error: ErrBackendError.Error(), Code: "BACKEND_ERROR"}

	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, Response{Error: "record not found", Code: "NOT_FOUND"}

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, Response{Error: "request timed out", Code: "TIMEOUT"}

	case errors.Is(err, context.Canceled):
		return 499, Response{Error: "request was canceled", Code: "CANCELED"}

	case IsInvalidArgument(err):
		return http.StatusBadRequest, Response{Error: err.Error(), Code: "INVALID_ARGUMENT"}

	default:
		// fallback → bubble up error message for debugging
		return http.StatusInternalServerError, Response{Error: err.Error(), Code: "INTERNAL"}
	}
}

// Wrap attaches a domain sentinel to an underlying cause so both survive
// errors.Is checks.
func Wrap(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// InvalidArgument creates a 400-mapped validation error.
func InvalidArgument(msg string) error {
	return &invalidArgument{msg: msg}
}

type invalidArgument struct{ msg string }

func (e *invalidArgument) Error() string { return e.msg }

// IsInvalidArgument reports whether err was built by InvalidArgument.
func IsInvalidArgument(err error) bool {
	var ia *invalidArgument
	return errors.As(err, &ia)
}
