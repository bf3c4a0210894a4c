package exif

import (
	"errors"
	"fmt"
)

// Kind classifies an extraction failure. The string value is what clients see
// in the "kind" field of an error report.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindInvalidEncoding   Kind = "invalid_encoding"
	KindFetchTimeout      Kind = "fetch_timeout"
	KindFetch             Kind = "fetch_error"
	KindPayloadTooLarge   Kind = "payload_too_large"
	KindUnsupportedFormat Kind = "unsupported_format"

	// KindDecode never leaves the extractor: a missing or broken metadata
	// segment is reported as a successful result without EXIF fields.
	KindDecode Kind = "decode_error"
)

// Error is the error type returned by every stage of an extraction.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same Kind, so errors.Is(err, &Error{Kind: k})
// works as a kind test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func wrapError(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
