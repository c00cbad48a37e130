package errors

import (
	"context"
	"fmt"
	"net/http"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMatchesSentinelThroughWrapping(t *testing.T) {
	err := fmt.Errorf("send money: %w", NewInsufficientFundsError(600, 400))

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, IsType(err, ErrorTypeInsufficientFunds))
	assert.Equal(t, http.StatusUnprocessableEntity, GetStatusCode(err))
	assert.Equal(t, "INSUFFICIENT_FUNDS", GetCode(err))
}

func TestWrapExternalIsRetryable(t *testing.T) {
	err := WrapExternal(fmt.Errorf("gateway 503"), "payment", "deposit submission failed")

	assert.True(t, IsRetryable(err))
	assert.Equal(t, ErrorTypeExternal, GetType(err))
	assert.Equal(t, "payment", err.Details["service"])
	assert.Equal(t, http.StatusBadGateway, GetStatusCode(err))
}

func TestGetStatusCodeDefaults(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(fmt.Errorf("plain")))
	assert.Equal(t, http.StatusNotFound, GetStatusCode(New(ErrorTypeNotFound, "X", "gone")))
	assert.Equal(t, http.StatusUnauthorized, GetStatusCode(NewAuthError("anonymous caller")))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ""},
		{"app error", NewConflictError("dup"), ErrorTypeConflict},
		{"deadline", context.DeadlineExceeded, ErrorTypeTimeout},
		{"canceled", context.Canceled, ErrorTypeInternal},
		{"conn refused", syscall.ECONNREFUSED, ErrorTypeTransient},
		{"message rate limit", fmt.Errorf("429 too many requests"), ErrorTypeRateLimit},
		{"message not found", fmt.Errorf("wallet not found"), ErrorTypeNotFound},
		{"unknown", fmt.Errorf("boom"), ErrorTypeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.False(t, ShouldRetry(nil))
	assert.False(t, ShouldRetry(NewValidationError("bad amount")))
	assert.True(t, ShouldRetry(fmt.Errorf("connection reset by peer")))
	assert.False(t, ShouldRetry(context.Canceled))
}
