package errors

import (
	"fmt"
)

// DashError is the structured error type for sharedash.
// It provides rich context for error handling, logging, and user presentation.
type DashError struct {
	// Code is the unique error code (e.g., "ERR_406_PATH_TRAVERSAL").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Store, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *DashError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DashError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with DashError.
func (e *DashError) Is(target error) bool {
	if t, ok := target.(*DashError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *DashError) WithDetail(key, value string) *DashError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *DashError) WithSuggestion(suggestion string) *DashError {
	e.Suggestion = suggestion
	return e
}

// New creates a new DashError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *DashError {
	return &DashError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a DashError from an existing error.
// The error's message becomes the DashError message.
func Wrap(code string, err error) *DashError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// TraversalError creates a path traversal rejection for the given input.
func TraversalError(path string) *DashError {
	return New(ErrCodePathTraversal, fmt.Sprintf("path escapes shared root: %q", path), nil).
		WithDetail("path", path)
}

// NotFoundError creates a not-found error for a path or record id.
func NotFoundError(what string) *DashError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("not found: %s", what), nil)
}

// ConflictError creates a stale-write conflict error.
func ConflictError(path string) *DashError {
	return New(ErrCodeWriteConflict, fmt.Sprintf("file changed on disk since last read: %s", path), nil).
		WithDetail("path", path).
		WithSuggestion("Re-read the file and retry the save")
}

// TooLargeError creates a size-cap rejection.
func TooLargeError(path string, size, limit int64) *DashError {
	return New(ErrCodeFileTooLarge, fmt.Sprintf("file too large to edit: %s (%d > %d bytes)", path, size, limit), nil).
		WithDetail("path", path)
}

// UnsupportedTypeError creates an extension-allowlist rejection.
func UnsupportedTypeError(fileType string) *DashError {
	return New(ErrCodeUnsupportedType, fmt.Sprintf("file type %q is not editable", fileType), nil)
}

// StoreError creates a store-unavailable error wrapping a backend failure.
func StoreError(message string, cause error) *DashError {
	return New(ErrCodeStoreUnavailable, message, cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *DashError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *DashError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a DashError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(*DashError); ok {
		return de.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(*DashError); ok {
		return de.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a DashError.
// Returns empty string if not a DashError.
func GetCode(err error) string {
	if de, ok := err.(*DashError); ok {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category from a DashError.
// Returns empty string if not a DashError.
func GetCategory(err error) Category {
	if de, ok := err.(*DashError); ok {
		return de.Category
	}
	return ""
}
