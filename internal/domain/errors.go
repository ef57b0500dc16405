package domain

import "fmt"

// ErrorType classifies domain-specific errors.
type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeUnreadable ErrorType = "unreadable"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeAPI        ErrorType = "api"
	ErrorTypeIO         ErrorType = "io"
)

// DomainError carries an error class alongside the message so callers can
// distinguish fatal document failures from recoverable page failures.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// IsType reports whether err is a DomainError of the given type.
func IsType(err error, t ErrorType) bool {
	de, ok := err.(*DomainError)
	return ok && de.Type == t
}

// NewError creates a new domain error.
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// NotFoundError marks a missing document; fatal before any state mutation.
func NotFoundError(message string, err error) *DomainError {
	return NewError(ErrorTypeNotFound, message, err)
}

// UnreadableError marks a missing or corrupt source file; fatal for the document.
func UnreadableError(message string, err error) *DomainError {
	return NewError(ErrorTypeUnreadable, message, err)
}

// ExtractionError marks a per-page extraction failure after retries.
func ExtractionError(message string, err error) *DomainError {
	return NewError(ErrorTypeExtraction, message, err)
}

func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func APIError(message string, err error) *DomainError {
	return NewError(ErrorTypeAPI, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}
