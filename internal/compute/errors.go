package compute

import (
	"errors"
	"fmt"

	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// ErrorCode categorizes runtime errors.
type ErrorCode string

const (
	// ErrCodeArgument is an invalid argument: empty device list, non-positive
	// size, buffer owned by another provider.
	ErrCodeArgument ErrorCode = "ARGUMENT"

	// ErrCodeArgumentTypeMismatch is a kernel signature that disagrees with
	// the range or buffers it is given.
	ErrCodeArgumentTypeMismatch ErrorCode = "ARGUMENT_TYPE_MISMATCH"

	// ErrCodeCompilation is a program the native driver rejected.
	ErrCodeCompilation ErrorCode = "COMPILATION"

	// ErrCodeRange is a transfer outside a buffer.
	ErrCodeRange ErrorCode = "RANGE"

	// ErrCodeDeviceAccessViolation is a device access the buffer's mode forbids.
	ErrCodeDeviceAccessViolation ErrorCode = "DEVICE_ACCESS_VIOLATION"

	// ErrCodeDeviceContextLost is loss of the native context.
	ErrCodeDeviceContextLost ErrorCode = "DEVICE_CONTEXT_LOST"

	// ErrCodeDisposedObject is use of a closed provider, buffer or queue.
	ErrCodeDisposedObject ErrorCode = "DISPOSED_OBJECT"

	// ErrCodeNative is any other failure reported by the native driver.
	ErrCodeNative ErrorCode = "NATIVE"
)

// Error is a runtime error. Translation failures are *ir.TranslationError
// values instead and pass through Compile unchanged.
type Error struct {
	Code    ErrorCode
	Message string

	// Err is the underlying driver error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying driver error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// NewArgumentError creates an ARGUMENT error.
func NewArgumentError(format string, args ...any) *Error {
	return newError(ErrCodeArgument, nil, format, args...)
}

// NewTypeMismatchError creates an ARGUMENT_TYPE_MISMATCH error.
func NewTypeMismatchError(format string, args ...any) *Error {
	return newError(ErrCodeArgumentTypeMismatch, nil, format, args...)
}

// NewRangeError creates a RANGE error.
func NewRangeError(format string, args ...any) *Error {
	return newError(ErrCodeRange, nil, format, args...)
}

// NewDisposedError creates a DISPOSED_OBJECT error.
func NewDisposedError(object string) *Error {
	return newError(ErrCodeDisposedObject, nil, "%s is closed", object)
}

// CommandError reports the command of a submission group that failed.
// Commands before Index completed; commands after it did not run.
type CommandError struct {
	Index int
	Err   *Error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %d: %v", e.Index, e.Err)
}

// Unwrap returns the runtime error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsArgumentError returns true if err is an ARGUMENT error.
func IsArgumentError(err error) bool { return hasCode(err, ErrCodeArgument) }

// IsTypeMismatch returns true if err is an ARGUMENT_TYPE_MISMATCH error.
func IsTypeMismatch(err error) bool { return hasCode(err, ErrCodeArgumentTypeMismatch) }

// IsCompilationError returns true if err is a COMPILATION error.
func IsCompilationError(err error) bool { return hasCode(err, ErrCodeCompilation) }

// IsRangeError returns true if err is a RANGE error.
func IsRangeError(err error) bool { return hasCode(err, ErrCodeRange) }

// IsAccessViolation returns true if err is a DEVICE_ACCESS_VIOLATION error.
func IsAccessViolation(err error) bool { return hasCode(err, ErrCodeDeviceAccessViolation) }

// IsContextLost returns true if err is a DEVICE_CONTEXT_LOST error.
func IsContextLost(err error) bool { return hasCode(err, ErrCodeDeviceContextLost) }

// IsDisposed returns true if err is a DISPOSED_OBJECT error.
func IsDisposed(err error) bool { return hasCode(err, ErrCodeDisposedObject) }

// IsNativeError returns true if err is a NATIVE error.
func IsNativeError(err error) bool { return hasCode(err, ErrCodeNative) }

// IsTranslationError returns true if err is any translation-time error.
func IsTranslationError(err error) bool { return ir.IsTranslationError(err) }
