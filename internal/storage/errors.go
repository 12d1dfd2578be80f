package storage

import (
	"errors"
	"fmt"
)

// Error is a storage operation error carrying the operation and object key
type Error struct {
	// Op is the operation that failed (e.g. "get", "list")
	Op string

	// Key is the object key or prefix, if any
	Key string

	// Err is the underlying error from the backend
	Err error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage.%s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, key string, err error) *Error {
	return &Error{Op: op, Key: key, Err: err}
}

var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidKey indicates a version, dataset or key that cannot address an object
	ErrInvalidKey = errors.New("invalid object key")

	// ErrUnknownBackend indicates an unsupported storage backend name
	ErrUnknownBackend = errors.New("unknown storage backend")
)
