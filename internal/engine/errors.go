package engine

import (
	"errors"
	"fmt"
)

// ErrorKind categorises a failed store operation.
type ErrorKind string

const (
	// KindValidation: missing vendor id, empty batch or malformed entry.
	// Caught before any storage call and never retried.
	KindValidation ErrorKind = "VALIDATION"

	// KindAuth: an identity is required and none was accepted.
	// Surfaced as a prompt to authenticate, never retried silently.
	KindAuth ErrorKind = "AUTH"

	// KindStorage: the backing store failed during find, insert or update.
	KindStorage ErrorKind = "STORAGE"

	// KindNotFound: the vendor or meal log does not exist for this identity.
	KindNotFound ErrorKind = "NOT_FOUND"

	// KindNetwork: the remote call did not complete.
	KindNetwork ErrorKind = "NETWORK"
)

// Error is returned by Store and RemoteAPI operations.
//
// Local state is never mutated when an operation returns an Error, with the
// single exception documented on Store.DeleteVendor for NOT_FOUND.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Op names the operation, e.g. "upsert meals".
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsAuth reports whether err is an authentication error.
func IsAuth(err error) bool { return KindOf(err) == KindAuth }

// IsStorage reports whether err is a backing-store failure.
func IsStorage(err error) bool { return KindOf(err) == KindStorage }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

func validationError(op string, err error) *Error {
	return NewError(KindValidation, op, "", err)
}
