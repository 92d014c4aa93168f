package journal

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueFull is the cause of an entry dropped because the write queue
	// had no room.
	ErrQueueFull = errors.New("journal queue full")

	// ErrRecorderClosed is the cause of an entry recorded after Close.
	ErrRecorderClosed = errors.New("recorder closed")
)

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // "sqlite", "memory"
	Operation string // "store", "query", "delete", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// QueryError represents an invalid query.
type QueryError struct {
	Query *Query
	Cause error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError creates a new QueryError.
func NewQueryError(query *Query, cause error) *QueryError {
	return &QueryError{Query: query, Cause: cause}
}

// RecorderError represents an entry that could not be recorded.
type RecorderError struct {
	EntryID string
	Cause   error
}

// Error implements the error interface.
func (e *RecorderError) Error() string {
	return fmt.Sprintf("failed to record entry %s: %v", e.EntryID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RecorderError) Unwrap() error {
	return e.Cause
}

// ExportError represents an error while exporting entries.
type ExportError struct {
	Format  string
	Entries int
	Cause   error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, entries=%d]: %v", e.Format, e.Entries, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, entries int, cause error) *ExportError {
	return &ExportError{Format: format, Entries: entries, Cause: cause}
}
