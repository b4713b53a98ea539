package provision

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/profile"
)

// ErrMissingIdentifier is returned when update or delete is called without an id.
var ErrMissingIdentifier = errors.New("missing identifier")

// ErrorKind classifies provisioning failures for logs. Callers only ever see a core.Result.
type ErrorKind string

const (
	KindMissingIdentifier ErrorKind = "missing identifier"
	KindCredential        ErrorKind = "credential failure"
	KindStoreFailure      ErrorKind = "store failure"
)

// Error is the internal failure of one provisioning operation.
type Error struct {
	Kind   ErrorKind
	Op     string
	Entity profile.Kind
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provision.%s(%s): %s: %v", e.Op, e.Entity, e.Kind, e.Err)
}

// Cause lets errors.Cause reach the store error.
func (e *Error) Cause() error { return e.Err }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the ErrorKind of err, or "" if err is not an *Error.
func KindOf(err error) ErrorKind {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Kind
	}
	return ""
}
