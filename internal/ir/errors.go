package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes translation-time errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedExpression indicates a node outside the recognized grammar.
	ErrCodeUnsupportedExpression ErrorCode = "UNSUPPORTED_EXPRESSION"

	// ErrCodeUnresolvedSymbol indicates a reference to neither the range nor a
	// declared buffer parameter.
	ErrCodeUnresolvedSymbol ErrorCode = "UNRESOLVED_SYMBOL"

	// ErrCodeTypeNotSupported indicates an element or expression type the
	// target cannot represent.
	ErrCodeTypeNotSupported ErrorCode = "TYPE_NOT_SUPPORTED"
)

// TranslationError is raised while parsing, validating or translating a kernel.
// It is never deferred to device execution.
type TranslationError struct {
	Code    ErrorCode
	Message string

	// Backend is set when the error is specific to one target language.
	Backend string
}

// Error implements the error interface.
func (e *TranslationError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("%s: %s (backend=%s)", e.Code, e.Message, e.Backend)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithBackend returns a copy of e attributed to a backend.
func (e *TranslationError) WithBackend(backend string) *TranslationError {
	c := *e
	c.Backend = backend
	return &c
}

// AttributeBackend returns err as a *TranslationError attributed to backend.
// Context added by wrapping is folded into the message. Other errors are
// returned unchanged.
func AttributeBackend(err error, backend string) error {
	var te *TranslationError
	if !errors.As(err, &te) {
		return err
	}
	c := *te
	c.Backend = backend
	if outer := err.Error(); outer != te.Error() {
		c.Message = strings.TrimSuffix(outer, te.Error()) + te.Message
	}
	return &c
}

// NewUnsupportedExpression creates an UNSUPPORTED_EXPRESSION error.
func NewUnsupportedExpression(format string, args ...any) *TranslationError {
	return &TranslationError{Code: ErrCodeUnsupportedExpression, Message: fmt.Sprintf(format, args...)}
}

// NewUnresolvedSymbol creates an UNRESOLVED_SYMBOL error.
func NewUnresolvedSymbol(format string, args ...any) *TranslationError {
	return &TranslationError{Code: ErrCodeUnresolvedSymbol, Message: fmt.Sprintf(format, args...)}
}

// NewTypeNotSupported creates a TYPE_NOT_SUPPORTED error.
func NewTypeNotSupported(format string, args ...any) *TranslationError {
	return &TranslationError{Code: ErrCodeTypeNotSupported, Message: fmt.Sprintf(format, args...)}
}

func hasCode(err error, code ErrorCode) bool {
	var te *TranslationError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// IsTranslationError returns true if err wraps any *TranslationError.
func IsTranslationError(err error) bool {
	var te *TranslationError
	return errors.As(err, &te)
}

// IsUnsupportedExpression returns true if err is an UNSUPPORTED_EXPRESSION error.
func IsUnsupportedExpression(err error) bool {
	return hasCode(err, ErrCodeUnsupportedExpression)
}

// IsUnresolvedSymbol returns true if err is an UNRESOLVED_SYMBOL error.
func IsUnresolvedSymbol(err error) bool {
	return hasCode(err, ErrCodeUnresolvedSymbol)
}

// IsTypeNotSupported returns true if err is a TYPE_NOT_SUPPORTED error.
func IsTypeNotSupported(err error) bool {
	return hasCode(err, ErrCodeTypeNotSupported)
}
