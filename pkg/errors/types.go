package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal server errors
	ErrorTypeInternal ErrorType = "internal"

	// ErrorTypeValidation represents input validation errors
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeNotFound represents resource not found errors
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeConflict represents resource conflict errors
	ErrorTypeConflict ErrorType = "conflict"

	// ErrorTypeUnauthorized covers both a missing identity and a missing permission
	ErrorTypeUnauthorized ErrorType = "unauthorized"

	// ErrorTypeInsufficientFunds is returned when available balance cannot cover a hold
	ErrorTypeInsufficientFunds ErrorType = "insufficient_funds"

	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeExternal represents payment or settlement adapter failures
	ErrorTypeExternal ErrorType = "external"

	// ErrorTypeTransient represents transient errors that can be retried
	ErrorTypeTransient ErrorType = "transient"
)

// AppError represents an application error with additional context
type AppError struct {
	Type       ErrorType         `json:"type"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Err        error             `json:"-"`
	Retryable  bool              `json:"retryable"`
	StatusCode int               `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on code and type so sentinel comparisons work through wrapping
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Sentinels for errors.Is comparisons
var (
	ErrInternal = &AppError{Type: ErrorTypeInternal, Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}

	ErrValidation = &AppError{Type: ErrorTypeValidation, Code: "VALIDATION_ERROR", Message: "Validation failed", StatusCode: http.StatusBadRequest}

	ErrNotFound = &AppError{Type: ErrorTypeNotFound, Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}

	ErrConflict = &AppError{Type: ErrorTypeConflict, Code: "CONFLICT", Message: "Resource conflict", StatusCode: http.StatusConflict}

	ErrUnauthorized = &AppError{Type: ErrorTypeUnauthorized, Code: "UNAUTHORIZED", Message: "Caller is not authorized", StatusCode: http.StatusUnauthorized}

	ErrInsufficientFunds = &AppError{Type: ErrorTypeInsufficientFunds, Code: "INSUFFICIENT_FUNDS", Message: "Insufficient funds", StatusCode: http.StatusUnprocessableEntity}

	ErrRateLimit = &AppError{Type: ErrorTypeRateLimit, Code: "RATE_LIMIT_EXCEEDED", Message: "Rate limit exceeded", StatusCode: http.StatusTooManyRequests, Retryable: true}

	ErrExternalService = &AppError{Type: ErrorTypeExternal, Code: "ADAPTER_ERROR", Message: "External payment service error", StatusCode: http.StatusBadGateway, Retryable: true}
)

// New creates a new AppError
func New(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		StatusCode: statusFor(errType),
	}
}

// IsType reports whether err carries an AppError of the given type anywhere in its chain
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetType returns the error type
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetCode returns the error code
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN_ERROR"
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.StatusCode != 0 {
			return appErr.StatusCode
		}
		return statusFor(appErr.Type)
	}
	return http.StatusInternalServerError
}

func statusFor(t ErrorType) int {
	switch t {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeInsufficientFunds:
		return http.StatusUnprocessableEntity
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeExternal, ErrorTypeTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
