// Package errors provides the error taxonomy for the audit engine.
// Every failure surfaced to a caller carries a Kind so that transient
// rendering problems, unreadable inputs, and persistence failures stay
// distinguishable all the way up the stack.
package errors

import (
	"errors"
	"fmt"
)

// Error is the base error type for all engine errors.
type Error struct {
	// Kind indicates the category of error
	Kind Kind

	// Op is the operation being performed (e.g., "render.Controller.Render")
	Op string

	// Message is a human-readable description
	Message string

	// Err is the underlying error
	Err error
}

// Kind represents the kind/category of error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindNavigationTimeout
	KindRenderFailure
	KindUnreadablePDF
	KindEvaluatorPartial
	KindStoreWrite
	KindNotFound
	KindTimeout
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNavigationTimeout:
		return "navigation_timeout"
	case KindRenderFailure:
		return "render_failure"
	case KindUnreadablePDF:
		return "unreadable_pdf"
	case KindEvaluatorPartial:
		return "evaluator_partial"
	case KindStoreWrite:
		return "store_write_failure"
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// E constructs an Error from the given arguments.
// Arguments can be: Kind, string (Op then Message), error.
func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			if e.Op == "" {
				e.Op = a
			} else {
				e.Message = a
			}
		case error:
			e.Err = a
		}
	}
	return e
}

// New creates a new simple error.
func New(message string) error {
	return &Error{Message: message}
}

// Wrap wraps an error with an operation for context.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// GetKind returns the Kind of the error, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsNavigationTimeout checks if the error is a navigation timeout.
func IsNavigationTimeout(err error) bool {
	return GetKind(err) == KindNavigationTimeout
}

// IsRenderFailure checks if the error is a browser-process level failure.
func IsRenderFailure(err error) bool {
	return GetKind(err) == KindRenderFailure
}

// IsUnreadablePDF checks if the error means the input could not be parsed
// as PDF structure at all.
func IsUnreadablePDF(err error) bool {
	return GetKind(err) == KindUnreadablePDF
}

// IsStoreWrite checks if the error is a persistence failure.
func IsStoreWrite(err error) bool {
	return GetKind(err) == KindStoreWrite
}

// IsNotFound checks if the error is a not-found error.
func IsNotFound(err error) bool {
	return GetKind(err) == KindNotFound
}

// IsRetryable reports whether a failed render may be retried with a fresh
// browser context. Only browser-process level failures qualify; a timeout
// already consumed the run's deadline and content-level failures are not
// retriable without a different input.
func IsRetryable(err error) bool {
	return GetKind(err) == KindRenderFailure
}

// Common errors
var (
	// ErrNavigationTimeout is returned when a page does not stabilize in time.
	ErrNavigationTimeout = &Error{Kind: KindNavigationTimeout, Message: "navigation did not stabilize within timeout"}

	// ErrRenderFailure is returned when the browser process cannot be started or crashes.
	ErrRenderFailure = &Error{Kind: KindRenderFailure, Message: "browser process failed"}

	// ErrUnreadablePDF is returned when the byte stream is not valid PDF structure.
	ErrUnreadablePDF = &Error{Kind: KindUnreadablePDF, Message: "input is not readable PDF structure"}

	// ErrNotFound is returned when no artifact exists for a run identifier.
	ErrNotFound = &Error{Kind: KindNotFound, Message: "not found"}

	// ErrPoolClosed is returned when acquiring a context from a closed browser pool.
	ErrPoolClosed = &Error{Kind: KindRenderFailure, Message: "browser pool is closed"}
)
