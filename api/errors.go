package api

import (
	"errors"
	"fmt"
)

// GenericMessage is shown when a failure carries no server message.
const GenericMessage = "Something went wrong. Please try again."

var (
	// ErrUnauthenticated means an authenticated call was attempted without a
	// token. No request is sent.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrValidation means local input validation failed before any request.
	ErrValidation = errors.New("validation failed")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string // server supplied, may be empty
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// ValidationError is a local input check that failed. It matches
// ErrValidation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// MessageOf picks the user-facing text for err: the server message when
// present, the validation reason for local validation failures, else fallback.
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) && valErr.Reason != "" {
		return valErr.Reason
	}
	return fallback
}
