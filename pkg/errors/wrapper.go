package errors

import (
	"fmt"
	"net/http"
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WrapWithType wraps an error with a specific error type
func WrapWithType(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Err:        err,
		Retryable:  IsTransient(errType),
		StatusCode: statusFor(errType),
	}
}

// WrapInternal wraps an internal error
func WrapInternal(err error, message string) *AppError {
	return WrapWithType(err, ErrorTypeInternal, "INTERNAL_ERROR", message)
}

// WrapExternal wraps a payment or settlement adapter failure
func WrapExternal(err error, service, message string) *AppError {
	appErr := WrapWithType(err, ErrorTypeExternal, "ADAPTER_ERROR", message)
	appErr.WithDetail("service", service)
	return appErr
}

// WrapTimeout wraps a timeout error
func WrapTimeout(err error, operation string) *AppError {
	appErr := WrapWithType(err, ErrorTypeTimeout, "TIMEOUT", "Operation timeout")
	appErr.WithDetail("operation", operation)
	return appErr
}

// IsTransient determines if an error type is transient
func IsTransient(errType ErrorType) bool {
	switch errType {
	case ErrorTypeTransient, ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeExternal:
		return true
	default:
		return false
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewValidationErrorf is NewValidationError with formatting
func NewValidationErrorf(format string, args ...interface{}) *AppError {
	return NewValidationError(fmt.Sprintf(format, args...))
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewAuthError is returned for the anonymous caller and for missing permissions
func NewAuthError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewInsufficientFundsError reports the shortfall between what was requested and what was available
func NewInsufficientFundsError(requested, available uint64) *AppError {
	appErr := &AppError{
		Type:       ErrorTypeInsufficientFunds,
		Code:       "INSUFFICIENT_FUNDS",
		Message:    "Insufficient funds",
		StatusCode: http.StatusUnprocessableEntity,
	}
	appErr.WithDetail("requested", fmt.Sprintf("%d", requested))
	appErr.WithDetail("available", fmt.Sprintf("%d", available))
	return appErr
}
