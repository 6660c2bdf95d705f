// Package errors provides structured error types and handling for permd.
//
//nolint:revive // var-naming: Package name is intentional for error type organization
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeUnknown is for unknown errors
	ErrorTypeUnknown ErrorType = "unknown"

	// ErrorTypeValidation is for validation errors
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeNotFound is for resource not found errors
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeInternal is for internal errors
	ErrorTypeInternal ErrorType = "internal"

	// ErrorTypeConfiguration is for configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"

	// ErrorTypeWatch is for change-notification installation errors
	ErrorTypeWatch ErrorType = "watch"

	// ErrorTypeScan is for compliance scan errors
	ErrorTypeScan ErrorType = "scan"

	// ErrorTypeEnforce is for permission enforcement errors
	ErrorTypeEnforce ErrorType = "enforce"
)

// PermdError represents a structured error with additional context
type PermdError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *PermdError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *PermdError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *PermdError) Is(target error) bool {
	if target == nil {
		return false
	}

	var targetErr *PermdError
	if errors.As(target, &targetErr) {
		return e.Type == targetErr.Type
	}

	return errors.Is(e.Cause, target)
}

// WithContext adds context to the error
func (e *PermdError) WithContext(key string, value interface{}) *PermdError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new PermdError
func New(errType ErrorType, message string) *PermdError {
	return &PermdError{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new PermdError with formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *PermdError {
	return &PermdError{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *PermdError {
	if err == nil {
		return nil
	}

	// If already a PermdError, preserve the original stack
	var permdErr *PermdError
	if errors.As(err, &permdErr) {
		return &PermdError{
			Type:    errType,
			Message: message,
			Cause:   err,
			Context: permdErr.Context,
			Stack:   permdErr.Stack,
		}
	}

	return &PermdError{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *PermdError {
	if err == nil {
		return nil
	}

	return Wrap(err, errType, fmt.Sprintf(format, args...))
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	var frames []StackFrame

	for i := skip; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		// Skip runtime and testing functions
		fnName := fn.Name()
		if strings.Contains(fnName, "runtime.") ||
			strings.Contains(fnName, "testing.") {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fnName,
			File:     file,
			Line:     line,
		})

		// Limit stack depth
		if len(frames) >= 10 {
			break
		}
	}

	return frames
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var permdErr *PermdError
	if errors.As(err, &permdErr) {
		return permdErr.Type == errType
	}
	return false
}

// GetType returns the error type
func GetType(err error) ErrorType {
	var permdErr *PermdError
	if errors.As(err, &permdErr) {
		return permdErr.Type
	}
	return ErrorTypeUnknown
}

// GetContext returns the error context
func GetContext(err error) map[string]interface{} {
	var permdErr *PermdError
	if errors.As(err, &permdErr) {
		return permdErr.Context
	}
	return nil
}

// Common error constructors

// NotFound creates a not found error
func NotFound(resource string) *PermdError {
	return Newf(ErrorTypeNotFound, "%s not found", resource)
}

// Invalid creates a validation error
func Invalid(field, reason string) *PermdError {
	err := Newf(ErrorTypeValidation, "invalid %s: %s", field, reason)
	return err.WithContext("field", field).WithContext("reason", reason)
}

// Internal creates an internal error
func Internal(message string) *PermdError {
	return New(ErrorTypeInternal, message)
}

// Config creates a configuration error
func Config(message string) *PermdError {
	return New(ErrorTypeConfiguration, message)
}

// Configf creates a configuration error with formatted message
func Configf(format string, args ...interface{}) *PermdError {
	return Newf(ErrorTypeConfiguration, format, args...)
}

// Domain-specific error constructors for permd

// ConfigLoad wraps a configuration loading error
func ConfigLoad(path string, err error) *PermdError {
	wrapped := Wrapf(err, ErrorTypeConfiguration, "failed to load configuration from %s", path)
	return wrapped.WithContext("config_path", path)
}

// WatchRoot creates an error for a watch root that cannot be monitored
func WatchRoot(root string, err error) *PermdError {
	wrapped := Wrapf(err, ErrorTypeWatch, "failed to watch %s", root)
	return wrapped.WithContext("root", root)
}

// ScanRoot wraps a compliance scan failure for one watch root
func ScanRoot(root string, err error) *PermdError {
	wrapped := Wrapf(err, ErrorTypeScan, "failed to scan %s", root)
	return wrapped.WithContext("root", root)
}

// Enforce wraps a permission change failure
func Enforce(path string, err error) *PermdError {
	wrapped := Wrapf(err, ErrorTypeEnforce, "failed to change mode of %s", path)
	return wrapped.WithContext("path", path)
}

// MissingRoot creates an error for a configured watch root that does not exist
func MissingRoot(root string) *PermdError {
	err := Newf(ErrorTypeNotFound, "watch root %s does not exist", root)
	return err.WithContext("root", root)
}
