package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced series, review or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the request would duplicate existing state.
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates the caller may not mutate the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrReviewNotInSeries indicates the review exists under a different series.
	ErrReviewNotInSeries = errors.New("review does not belong to series")
	// ErrInvalidCredentials is returned by login for an unknown user or bad password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Error attaches a client-facing message to one of the sentinel kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
