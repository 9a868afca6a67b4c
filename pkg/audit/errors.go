package audit

import (
	"errors"
	"fmt"
)

// ErrRecorderClosed is returned when recording after the recorder shut down.
var ErrRecorderClosed = errors.New("recorder closed")

// ErrBufferFull is returned when the recorder's queue has no room.
var ErrBufferFull = errors.New("record buffer full")

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("store", "query", "delete", etc.)
	Err       error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, err error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Err: err}
}

// QueryError represents an invalid query.
type QueryError struct {
	Err error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError creates a new QueryError.
func NewQueryError(err error) *QueryError {
	return &QueryError{Err: err}
}

// RecorderError represents a record that could not be queued or written.
type RecorderError struct {
	RecordID string
	Err      error
}

// Error implements the error interface.
func (e *RecorderError) Error() string {
	return fmt.Sprintf("recorder error [record=%s]: %v", e.RecordID, e.Err)
}

// Unwrap returns the underlying error.
func (e *RecorderError) Unwrap() error {
	return e.Err
}

// NewRecorderError creates a new RecorderError.
func NewRecorderError(recordID string, err error) *RecorderError {
	return &RecorderError{RecordID: recordID, Err: err}
}

// RetentionError represents a failed pruning run.
type RetentionError struct {
	RetentionDays int
	Err           error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [days=%d]: %v", e.RetentionDays, e.Err)
}

// Unwrap returns the underlying error.
func (e *RetentionError) Unwrap() error {
	return e.Err
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(days int, err error) *RetentionError {
	return &RetentionError{RetentionDays: days, Err: err}
}
