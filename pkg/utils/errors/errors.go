package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of an error
type ErrorType uint

const (
	// ErrorTypeUnknown represents an unknown error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeInvalidArgument represents a malformed request
	ErrorTypeInvalidArgument
	// ErrorTypeNotFound represents a not found error
	ErrorTypeNotFound
	// ErrorTypeDomain represents a parameter outside the model's valid domain
	ErrorTypeDomain
	// ErrorTypeComputation represents an intermediate value that left the representable range
	ErrorTypeComputation
	// ErrorTypeInternal represents an internal error
	ErrorTypeInternal
	// ErrorTypeResourceExhausted represents a request above a configured size limit
	ErrorTypeResourceExhausted
)

var typeNames = map[ErrorType]string{
	ErrorTypeUnknown:           "unknown",
	ErrorTypeInvalidArgument:   "invalid_argument",
	ErrorTypeNotFound:          "not_found",
	ErrorTypeDomain:            "domain_error",
	ErrorTypeComputation:       "computation_error",
	ErrorTypeInternal:          "internal",
	ErrorTypeResourceExhausted: "resource_exhausted",
}

// String returns the snake_case name of the error type
func (t ErrorType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	// Param names the offending input, if any
	Param string
	Err   error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new error with the given message
func New(message string) error {
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: message,
	}
}

// Newf creates a new error with the given format and arguments
func Newf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a message. The kind and offending parameter of
// the innermost AppError are carried over.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: message,
			Param:   appErr.Param,
			Err:     err,
		}
	}
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithType adds a type to an error
func WithType(err error, errType ErrorType) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if As(err, &appErr) {
		return &AppError{
			Type:    errType,
			Message: appErr.Message,
			Param:   appErr.Param,
			Err:     appErr.Err,
		}
	}
	return &AppError{
		Type:    errType,
		Message: err.Error(),
	}
}

// Is reports whether err or any of the errors in its chain is target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// TypeOf returns the kind of the first AppError in err's chain
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// ParamOf returns the offending parameter recorded in err's chain, if any
func ParamOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Param
	}
	return ""
}

// IsDomain reports whether err is a DomainError
func IsDomain(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeDomain
}

// IsComputation reports whether err is a ComputationError
func IsComputation(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeComputation
}

// Domain creates a DomainError for a parameter outside its valid range
func Domain(param string, value float64, constraint string) error {
	return &AppError{
		Type:    ErrorTypeDomain,
		Message: fmt.Sprintf("%s must be %s, got %g", param, constraint, value),
		Param:   param,
	}
}

// Computation creates a ComputationError for a value that overflowed or underflowed
func Computation(param string, message string) error {
	return &AppError{
		Type:    ErrorTypeComputation,
		Message: message,
		Param:   param,
	}
}

// InvalidArgument creates a new InvalidArgument error
func InvalidArgument(message string) error {
	return &AppError{
		Type:    ErrorTypeInvalidArgument,
		Message: message,
	}
}

// NotFound creates a new NotFound error
func NotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// Internal creates a new Internal error
func Internal(message string) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
	}
}

// ResourceExhausted creates a new ResourceExhausted error
func ResourceExhausted(param string, message string) error {
	return &AppError{
		Type:    ErrorTypeResourceExhausted,
		Message: message,
		Param:   param,
	}
}
