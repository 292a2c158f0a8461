// Package errs defines the closed error union used across the engine:
// PlatformError, InvalidArgumentError, and InvariantViolation. Anything
// else crossing an adapter boundary is converted into a PlatformError.
package errs

import "fmt"

// PlatformError is any failure attributable to a single upstream platform:
// HTTP non-2xx, connection error, decode failure, or upstream timeout.
type PlatformError struct {
	Platform string
	Message  string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Platform, e.Message)
}

// NewPlatformError builds a PlatformError, wrapping an underlying cause.
func NewPlatformError(platform string, cause error) *PlatformError {
	return &PlatformError{Platform: platform, Message: cause.Error()}
}

// InternalPlatformError wraps an unexpected (non-union) error encountered
// at an adapter boundary, per the "ad-hoc exception handling" redesign.
func InternalPlatformError(platform string, cause error) *PlatformError {
	return &PlatformError{Platform: platform, Message: "internal: " + cause.Error()}
}

// InvalidArgumentError signals an unknown platform, out-of-range parameter,
// or missing required field. Always propagates to the caller.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return e.Message
}

// NewInvalidArgumentError builds an InvalidArgumentError with a formatted message.
func NewInvalidArgumentError(format string, args ...any) *InvalidArgumentError {
	return &InvalidArgumentError{Message: fmt.Sprintf(format, args...)}
}

// InvariantViolation indicates a probability outside [0,1] reached
// construction — an adapter bug. It aborts the enclosing operation.
type InvariantViolation struct {
	Message string
}

func (e *InvariantViolation) Error() string {
	return e.Message
}

// NewInvariantViolation builds an InvariantViolation with a formatted message.
func NewInvariantViolation(format string, args ...any) *InvariantViolation {
	return &InvariantViolation{Message: fmt.Sprintf(format, args...)}
}
