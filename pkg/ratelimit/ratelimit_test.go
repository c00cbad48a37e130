package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cafe-connect/trust_ledger/pkg/tracing"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestLocalLimiterIsPerKey(t *testing.T) {
	l := NewLocalLimiter(Config{Limit: 2, Window: time.Hour})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "alice")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "bob")
	assert.True(t, ok)
}

func newRouter(t *testing.T, limiter Limiter, principal string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if principal != "" {
			c.Set(tracing.PrincipalKey, principal)
		}
		c.Next()
	})
	r.Use(Middleware(limiter, PrincipalKeyFunc, zaptest.NewLogger(t)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	r := newRouter(t, NewLocalLimiter(Config{Limit: 1, Window: time.Hour}), "alice")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}

func TestMiddlewareFailsOpen(t *testing.T) {
	r := newRouter(t, failingLimiter{}, "alice")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestPrincipalKeyFunc(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.0.0.1:1234"

	assert.Equal(t, "ip:10.0.0.1", PrincipalKeyFunc(c))

	c.Set(tracing.PrincipalKey, "alice")
	assert.Equal(t, "principal:alice", PrincipalKeyFunc(c))
}
