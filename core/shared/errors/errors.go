package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Registry errors
	ErrCodeConnectionNotFound  ErrorCode = "CONNECTION_NOT_FOUND"
	ErrCodeConnectionAmbiguous ErrorCode = "CONNECTION_AMBIGUOUS"
	ErrCodeConfigInvalid       ErrorCode = "CONFIG_INVALID"

	// Credential errors
	ErrCodeInvalidKey ErrorCode = "INVALID_KEY"

	// Backend errors
	ErrCodeUnknownBackend   ErrorCode = "UNKNOWN_BACKEND"
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	ErrCodeStatementFailed  ErrorCode = "STATEMENT_FAILED"

	// Dispatch errors
	ErrCodeEmptyResult ErrorCode = "EMPTY_RESULT"
	ErrCodeNoResult    ErrorCode = "NO_RESULT"

	// Generic errors
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// BridgeError represents a dbbridge error with code and context
type BridgeError struct {
	Code    ErrorCode
	Message string
	Err     error
	Status  int // HTTP status code
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *BridgeError) Unwrap() error {
	return e.Err
}

// New creates a new bridge error
func New(code ErrorCode, message string) *BridgeError {
	return Wrap(code, message, nil)
}

// Newf creates a new bridge error with a formatted message
func Newf(code ErrorCode, format string, args ...any) *BridgeError {
	return Wrap(code, fmt.Sprintf(format, args...), nil)
}

// Wrap wraps an existing error with an error code and message
func Wrap(code ErrorCode, message string, err error) *BridgeError {
	return &BridgeError{
		Code:    code,
		Message: message,
		Err:     err,
		Status:  getHTTPStatus(code),
	}
}

// Wrapf wraps an existing error with an error code and a formatted message
func Wrapf(code ErrorCode, err error, format string, args ...any) *BridgeError {
	return Wrap(code, fmt.Sprintf(format, args...), err)
}

// getHTTPStatus maps error codes to HTTP status codes
func getHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeConnectionNotFound, ErrCodeEmptyResult:
		return http.StatusNotFound
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf extracts the error code from an error chain, or ErrCodeInternalError
// when the chain carries no BridgeError.
func CodeOf(err error) ErrorCode {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodeInternalError
}

// HTTPStatus extracts the HTTP status from an error chain
func HTTPStatus(err error) int {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Status
	}
	return http.StatusInternalServerError
}

// Is reports whether the error chain carries a BridgeError with the given code
func Is(err error, code ErrorCode) bool {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// IsNotFound checks if the error is a missing-connection error
func IsNotFound(err error) bool {
	return Is(err, ErrCodeConnectionNotFound)
}

// IsInvalidKey checks if the error is a credential key error
func IsInvalidKey(err error) bool {
	return Is(err, ErrCodeInvalidKey)
}

// IsEmptyResult checks if the error signals a first-row request on an empty result
func IsEmptyResult(err error) bool {
	return Is(err, ErrCodeEmptyResult)
}

// IsStatementFailed checks if the error came from statement execution
func IsStatementFailed(err error) bool {
	return Is(err, ErrCodeStatementFailed)
}
