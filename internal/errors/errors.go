// Package errors provides structured error types for the fieldgrid schema
// layer. All errors carry a category and code so callers can react to the
// persistence-level taxonomy (not found, duplicate token, corrupt record,
// store I/O) without string matching.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by failure class.
type ErrorCategory string

const (
	ErrCategoryNotFound  ErrorCategory = "NOT_FOUND"
	ErrCategoryConflict  ErrorCategory = "CONFLICT"
	ErrCategoryReference ErrorCategory = "REFERENCE"
	ErrCategoryCorrupt   ErrorCategory = "CORRUPT"
	ErrCategoryStore     ErrorCategory = "STORE"
	ErrCategoryInternal  ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Not-found codes
	CodeInvalidSiteToken       = "INVALID_SITE_TOKEN"
	CodeInvalidHardwareID      = "INVALID_HARDWARE_ID"
	CodeInvalidZoneToken       = "INVALID_ZONE_TOKEN"
	CodeInvalidAssignmentToken = "INVALID_ASSIGNMENT_TOKEN"

	// Conflict codes
	CodeDuplicateToken        = "DUPLICATE_TOKEN"
	CodeDeviceAlreadyAssigned = "DEVICE_ALREADY_ASSIGNED"
	CodeHardwareIDImmutable   = "HARDWARE_ID_IMMUTABLE"

	// Corruption codes
	CodeUnexpectedColumnCount = "UNEXPECTED_COLUMN_COUNT"
	CodeUnparsableBody        = "UNPARSABLE_BODY"

	// Store codes
	CodeGetFailed       = "GET_FAILED"
	CodePutFailed       = "PUT_FAILED"
	CodeDeleteFailed    = "DELETE_FAILED"
	CodeScanFailed      = "SCAN_FAILED"
	CodeIncrementFailed = "INCREMENT_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// FieldgridError is the structured error type used throughout the system.
type FieldgridError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Cause    error
}

// Error returns a formatted error string.
func (e *FieldgridError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *FieldgridError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *FieldgridError) Is(target error) bool {
	var t *FieldgridError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new FieldgridError.
func New(category ErrorCategory, code, message string) *FieldgridError {
	return &FieldgridError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Wrap creates a new FieldgridError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *FieldgridError {
	return &FieldgridError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a FieldgridError.
func GetCategory(err error) ErrorCategory {
	var fe *FieldgridError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a FieldgridError.
func GetCode(err error) string {
	var fe *FieldgridError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsNotFound reports whether the error represents an unresolved token or
// hardware id. Lookup callers usually map this to an empty result rather
// than a failure.
func IsNotFound(err error) bool {
	return GetCategory(err) == ErrCategoryNotFound
}

// Convenience constructors for common errors.

func NewNotFoundError(code, message string) *FieldgridError {
	return New(ErrCategoryNotFound, code, message)
}

func NewConflictError(code, message string) *FieldgridError {
	return New(ErrCategoryConflict, code, message)
}

func NewReferenceError(code, message string) *FieldgridError {
	return New(ErrCategoryReference, code, message)
}

func NewCorruptError(code, message string) *FieldgridError {
	return New(ErrCategoryCorrupt, code, message)
}

func NewStoreError(code, message string, cause error) *FieldgridError {
	return Wrap(ErrCategoryStore, code, message, cause)
}

func NewInternalError(message string, cause error) *FieldgridError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
