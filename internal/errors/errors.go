package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInvalidQuote  = "INVALID_QUOTE"
	ErrCodeSerialization = "SERIALIZATION_ERROR"
	ErrCodeStorage       = "STORAGE_ERROR"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeInternal      = "INTERNAL_ERROR"
	ErrCodeBadRequest    = "BAD_REQUEST"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string // Error code (e.g., "NOT_FOUND", "STORAGE_ERROR")
	Message string // Human-readable error message
	Status  int    // HTTP status code
	Err     error  // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  404,
	}
}

// NewInvalidQuoteError reports a quote that cannot be turned into a puzzle.
func NewInvalidQuoteError(reason string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidQuote,
		Message: fmt.Sprintf("invalid quote: %s", reason),
		Status:  422,
	}
}

// NewSerializationError reports a persisted value that could not be decoded.
func NewSerializationError(what string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeSerialization,
		Message: fmt.Sprintf("cannot decode %s", what),
		Status:  500,
		Err:     err,
	}
}

// NewStorageError wraps a failure of the underlying store.
func NewStorageError(op string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeStorage,
		Message: fmt.Sprintf("storage failure during %s", op),
		Status:  503,
		Err:     err,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  400,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  500,
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  400,
	}
}

// CodeOf returns the code of the outermost AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func hasCode(err error, code string) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
	}
	return false
}

func IsNotFound(err error) bool      { return hasCode(err, ErrCodeNotFound) }
func IsInvalidQuote(err error) bool  { return hasCode(err, ErrCodeInvalidQuote) }
func IsSerialization(err error) bool { return hasCode(err, ErrCodeSerialization) }
func IsStorage(err error) bool       { return hasCode(err, ErrCodeStorage) }
func IsValidation(err error) bool    { return hasCode(err, ErrCodeValidation) }

// From returns err as an *AppError, wrapping anything else as INTERNAL_ERROR.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(err)
}
