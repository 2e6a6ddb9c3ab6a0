package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no track exists for the requested id.
	ErrNotFound = errors.New("track not found")
	// ErrForbidden means the caller does not own the track it tried to change.
	ErrForbidden = errors.New("caller is not the owner of this track")
	// ErrInvalidArgument covers malformed listing options and empty updates.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStorageUnavailable wraps any failure reported by a storage collaborator.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// storageError marks err as a storage failure while keeping the original cause
// reachable through errors.Is / errors.As.
type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.op, ErrStorageUnavailable, e.err)
}

func (e *storageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

func (e *storageError) Unwrap() error {
	return e.err
}

func unavailable(op string, err error) error {
	return &storageError{op: op, err: err}
}

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
