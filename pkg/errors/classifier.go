package errors

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// ClassifyError classifies an error for retry and circuit breaker logic
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	// Cancellation comes from the caller, never retry it
	if errors.Is(err, context.Canceled) {
		return ErrorTypeInternal
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}

	var syscallErr syscall.Errno
	if errors.As(err, &syscallErr) {
		switch syscallErr {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ECONNABORTED:
			return ErrorTypeTransient
		case syscall.ETIMEDOUT:
			return ErrorTypeTimeout
		}
	}

	errMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded"):
		return ErrorTypeTimeout
	case strings.Contains(errMsg, "connection refused"),
		strings.Contains(errMsg, "connection reset"),
		strings.Contains(errMsg, "broken pipe"),
		strings.Contains(errMsg, "service unavailable"):
		return ErrorTypeTransient
	case strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "too many requests"):
		return ErrorTypeRateLimit
	case strings.Contains(errMsg, "insufficient funds"):
		return ErrorTypeInsufficientFunds
	case strings.Contains(errMsg, "invalid") || strings.Contains(errMsg, "malformed"):
		return ErrorTypeValidation
	case strings.Contains(errMsg, "duplicate") || strings.Contains(errMsg, "already exists"):
		return ErrorTypeConflict
	case strings.Contains(errMsg, "unauthorized") || strings.Contains(errMsg, "permission denied"):
		return ErrorTypeUnauthorized
	case strings.Contains(errMsg, "not found"):
		return ErrorTypeNotFound
	}

	return ErrorTypeInternal
}

// ShouldRetry reports whether the classified type is worth another attempt
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if IsRetryable(err) {
		return true
	}
	return IsTransient(ClassifyError(err))
}
