package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for graph model errors.
type ErrorCode string

// Error codes raised before any I/O.
const (
	// ErrCodeValidationFailed covers reference cycles, complex properties
	// attached to relationships, and missing required properties.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// ErrCodeTranslationNotSupported is raised at query-build time when a
	// query construct has no Cypher translation.
	ErrCodeTranslationNotSupported ErrorCode = "TRANSLATION_NOT_SUPPORTED"

	// ErrCodeTypeResolutionFailed is raised when stored labels cannot be
	// mapped back to a registered type.
	ErrCodeTypeResolutionFailed ErrorCode = "TYPE_RESOLUTION_FAILED"

	// ErrCodeInvalidConfig covers malformed configuration.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Error codes surfaced from store operations.
const (
	// ErrCodeNotFound means a get/update/delete target does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeConflict means the operation is blocked by existing graph
	// structure: a non-cascading delete with live relationships, or a
	// relationship create with a missing endpoint.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeStoreFailed wraps a failure reported by the external driver.
	ErrCodeStoreFailed ErrorCode = "STORE_FAILED"

	// ErrCodeTransactionFailed covers begin/commit/rollback failures and
	// use of a closed or nested transaction.
	ErrCodeTransactionFailed ErrorCode = "TRANSACTION_FAILED"

	// ErrCodeConnectionFailed covers driver connectivity failures.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
)

// GraphError represents a structured error for graph model operations.
// It carries an error code for programmatic handling, an optional wrapped
// cause, and free-form context for debugging.
type GraphError struct {
	Code      ErrorCode
	Message   string
	Cause     error
	Context   map[string]any
	Retryable bool
}

// Error implements the error interface.
// Format: "[CODE] message" or "[CODE] message: cause" if a cause exists.
func (e *GraphError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping chains.
func (e *GraphError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is against sentinel values.
func (e *GraphError) Is(target error) bool {
	var graphErr *GraphError
	if errors.As(target, &graphErr) {
		return e.Code == graphErr.Code
	}
	return false
}

// WithContext attaches a key/value pair to the error for debugging.
// Returns the error for method chaining.
func (e *GraphError) WithContext(key string, value any) *GraphError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NewError creates a non-retryable GraphError with the given code and message.
func NewError(code ErrorCode, message string) *GraphError {
	return &GraphError{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WrapError creates a GraphError that wraps an existing error.
func WrapError(code ErrorCode, message string, cause error) *GraphError {
	return &GraphError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// HasCode reports whether err (or anything it wraps) is a GraphError with
// the given code.
func HasCode(err error, code ErrorCode) bool {
	var graphErr *GraphError
	if errors.As(err, &graphErr) {
		return graphErr.Code == code
	}
	return false
}

// Helper constructors for the common error scenarios.

// NewValidationError creates a validation failure. Validation errors are
// raised before any I/O and are never retryable.
func NewValidationError(message string) *GraphError {
	return NewError(ErrCodeValidationFailed, message)
}

// NewNotFoundError creates a not-found error for the given entity kind and id.
func NewNotFoundError(kind string, id string) *GraphError {
	return NewError(ErrCodeNotFound, fmt.Sprintf("%s not found: %s", kind, id)).
		WithContext("kind", kind).
		WithContext("id", id)
}

// NewConflictError creates a conflict error. The message must carry enough
// context for the caller to choose cascade or fix the reference.
func NewConflictError(message string) *GraphError {
	return NewError(ErrCodeConflict, message)
}

// NewTranslationError creates a translation-not-supported error naming the
// unsupported construct.
func NewTranslationError(construct string) *GraphError {
	return NewError(ErrCodeTranslationNotSupported,
		fmt.Sprintf("no translation for %s", construct)).
		WithContext("construct", construct)
}

// NewTypeResolutionError creates a type resolution failure for the given
// stored labels.
func NewTypeResolutionError(labels []string, requested string) *GraphError {
	return NewError(ErrCodeTypeResolutionFailed,
		fmt.Sprintf("no registered type for labels %v compatible with %q", labels, requested)).
		WithContext("labels", labels).
		WithContext("requested", requested)
}

// WrapStoreError wraps a driver failure with operation context.
// Store errors are not swallowed; the cause stays reachable via Unwrap.
func WrapStoreError(message string, cause error) *GraphError {
	return WrapError(ErrCodeStoreFailed, message, cause)
}

// NewTransactionError creates a transaction failure. Transaction conflicts
// reported by the store are retryable; misuse (nested or closed
// transactions) is not, which callers distinguish via the cause.
func NewTransactionError(message string, cause error) *GraphError {
	return WrapError(ErrCodeTransactionFailed, message, cause)
}

// NewConnectionError creates a connection failure error. Connection errors
// are retryable as network issues may be transient.
func NewConnectionError(message string, cause error) *GraphError {
	e := WrapError(ErrCodeConnectionFailed, message, cause)
	e.Retryable = true
	return e
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, cause error) *GraphError {
	return WrapError(ErrCodeInvalidConfig, message, cause)
}
