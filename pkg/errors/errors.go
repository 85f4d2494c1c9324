// Package errors defines common error types for the application.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown           = "UNKNOWN_ERROR"
	CodeSnapshotNotFound  = "SNAPSHOT_NOT_FOUND"
	CodeSnapshotIO        = "SNAPSHOT_IO_ERROR"
	CodeSnapshotCorrupt   = "SNAPSHOT_CORRUPT"
	CodeCacheCorrupt      = "CACHE_CORRUPT"
	CodeParseError        = "PARSE_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeTimeout           = "TIMEOUT_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeConfigError       = "CONFIG_ERROR"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
var (
	ErrSnapshotNotFound = New(CodeSnapshotNotFound, "snapshot file not found")
	ErrSnapshotIO       = New(CodeSnapshotIO, "snapshot I/O error")
	ErrSnapshotCorrupt  = New(CodeSnapshotCorrupt, "snapshot is not a valid heap dump")
	ErrCacheCorrupt     = New(CodeCacheCorrupt, "reverse index cache is corrupt")
	ErrParseError       = New(CodeParseError, "parse error")
	ErrInvalidInput     = New(CodeInvalidInput, "invalid input")
	ErrTimeout          = New(CodeTimeout, "operation timeout")
	ErrNotFound         = New(CodeNotFound, "resource not found")
	ErrConfigError      = New(CodeConfigError, "configuration error")
)

// IsSnapshotNotFound checks if the error means the snapshot file is missing.
func IsSnapshotNotFound(err error) bool {
	return errors.Is(err, ErrSnapshotNotFound)
}

// IsSnapshotCorrupt checks if the error means the snapshot failed to parse.
func IsSnapshotCorrupt(err error) bool {
	return errors.Is(err, ErrSnapshotCorrupt)
}

// IsCacheCorrupt checks if the error means the reverse index cache must be
// rebuilt rather than trusted.
func IsCacheCorrupt(err error) bool {
	return errors.Is(err, ErrCacheCorrupt)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
