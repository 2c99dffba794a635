package common

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeConfiguration for a missing or invalid setting, raised before any network call
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeTransport for network failures reaching the board or file store API
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeUpstream for non-success responses and GraphQL error lists
	ErrorTypeUpstream ErrorType = "upstream"
	// ErrorTypeConflict for remote writes rejected because the version token went stale
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeStorage for local persistence errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeService for service-level errors
	ErrorTypeService ErrorType = "service"
	// ErrorTypeInternal for internal system errors
	ErrorTypeInternal ErrorType = "internal"
)

// CollectorError represents a structured error with context
type CollectorError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	StatusCode int                    `json:"status_code,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *CollectorError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Details != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Details)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap implements the errors.Unwrap interface
func (e *CollectorError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *CollectorError) WithContext(key string, value interface{}) *CollectorError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *CollectorError) WithCause(cause error) *CollectorError {
	e.Cause = cause
	return e
}

// WithDetails attaches diagnostic text, typically a response body
func (e *CollectorError) WithDetails(details string) *CollectorError {
	e.Details = details
	return e
}

// WithStatus records the HTTP status code of the failed response
func (e *CollectorError) WithStatus(statusCode int) *CollectorError {
	e.StatusCode = statusCode
	return e
}

// NewError creates a new CollectorError
func NewError(errorType ErrorType, code, message string) *CollectorError {
	return &CollectorError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(code, message string) *CollectorError {
	return NewError(ErrorTypeConfiguration, code, message)
}

// NewTransportError creates a transport error
func NewTransportError(code, message string) *CollectorError {
	return NewError(ErrorTypeTransport, code, message)
}

// NewUpstreamError creates an upstream protocol error
func NewUpstreamError(code, message string) *CollectorError {
	return NewError(ErrorTypeUpstream, code, message)
}

// NewConflictError creates a stale version token error
func NewConflictError(code, message string) *CollectorError {
	return NewError(ErrorTypeConflict, code, message)
}

// NewStorageError creates a storage error
func NewStorageError(code, message string) *CollectorError {
	return NewError(ErrorTypeStorage, code, message)
}

// NewServiceError creates a service error
func NewServiceError(code, message string) *CollectorError {
	return NewError(ErrorTypeService, code, message)
}

// NewInternalError creates an internal system error
func NewInternalError(code, message string) *CollectorError {
	return NewError(ErrorTypeInternal, code, message)
}

// WrapError wraps an existing error with CollectorError context
func WrapError(err error, errorType ErrorType, code, message string) *CollectorError {
	return &CollectorError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     err,
	}
}

// TypeOf returns the ErrorType of the first CollectorError in err's chain,
// or the empty string when there is none.
func TypeOf(err error) ErrorType {
	var collectorErr *CollectorError
	if errors.As(err, &collectorErr) {
		return collectorErr.Type
	}
	return ""
}

// IsConflict reports whether err is a stale version token rejection.
func IsConflict(err error) bool {
	return TypeOf(err) == ErrorTypeConflict
}

// IsTransport reports whether err is a network failure.
func IsTransport(err error) bool {
	return TypeOf(err) == ErrorTypeTransport
}

// IsUpstream reports whether err is an upstream protocol error.
func IsUpstream(err error) bool {
	return TypeOf(err) == ErrorTypeUpstream
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return TypeOf(err) == ErrorTypeConfiguration
}

// HasCode reports whether err carries a CollectorError with the given code.
func HasCode(err error, code string) bool {
	var collectorErr *CollectorError
	return errors.As(err, &collectorErr) && collectorErr.Code == code
}
