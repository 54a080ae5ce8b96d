package domain

import (
	"errors"
	"fmt"
)

// Error categories. Callers branch on these with errors.Is.
var (
	// ErrUpstreamUnavailable marks failures of an external collaborator
	// (candidate source, language model). It is never an empty result.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInvalidInput indicates malformed or invalid caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrProfileIncomplete is returned when a recommendation is requested
	// before purpose, salary and cash are known.
	ErrProfileIncomplete = errors.New("profile incomplete")
)

// UpstreamError keeps the collaborator name and the original cause while
// matching ErrUpstreamUnavailable.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrUpstreamUnavailable, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstreamUnavailable, e.Err}
}

// Upstream wraps err as an UpstreamError unless it already is one.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Op: op, Err: err}
}

// Invalid returns an ErrInvalidInput with a message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
