package lock

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResourceID indicates an operation was attempted with an empty resource name.
	ErrEmptyResourceID = errors.New("benchlock: resource ID must not be empty")

	// ErrInvalidTimeout indicates a negative acquisition timeout was provided.
	ErrInvalidTimeout = errors.New("benchlock: timeout must not be negative")

	// ErrInvalidTTL indicates a non-positive TTL was provided.
	ErrInvalidTTL = errors.New("benchlock: TTL must be positive")

	// ErrInvalidPollInterval indicates a non-positive poll interval was provided.
	ErrInvalidPollInterval = errors.New("benchlock: poll interval must be positive")

	// ErrStorageUnavailable indicates the backing store could not be reached
	// or the transaction failed for transport reasons. Matched by errors.Is
	// against any *StorageError.
	ErrStorageUnavailable = errors.New("benchlock: storage unavailable")

	// ErrStoreClosed indicates an operation was attempted on a closed store.
	ErrStoreClosed = errors.New("benchlock: store is closed")
)

// StorageError wraps a failure from a storage coordinator with the operation
// and backend it came from. Transient reports whether the acquire poll loop
// may treat the failure like a missed attempt and retry.
type StorageError struct {
	Op        string // Storage operation that failed ("try_acquire_lock", ...)
	Backend   string // Backend name ("postgres", "redis", "memory")
	Err       error  // Underlying driver error
	Transient bool   // Whether retrying may succeed
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("benchlock: %s %s failed: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports a match for ErrStorageUnavailable in addition to the wrapped chain.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable || errors.Is(e.Err, target)
}

// NewStorageError builds a StorageError for the given backend operation.
func NewStorageError(backend, op string, err error, transient bool) *StorageError {
	return &StorageError{Op: op, Backend: backend, Err: err, Transient: transient}
}

// IsTransient reports whether err is a storage failure that may clear on
// retry. Argument errors and unclassified errors are never transient.
func IsTransient(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Transient
	}
	return false
}
