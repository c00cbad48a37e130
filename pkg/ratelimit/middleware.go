package ratelimit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cafe-connect/trust_ledger/pkg/metrics"
	"github.com/cafe-connect/trust_ledger/pkg/tracing"
)

// KeyFunc extracts the rate limit key from the request
type KeyFunc func(*gin.Context) string

// Middleware rejects requests over the limit with 429. Limiter failures fail open.
func Middleware(limiter Limiter, keyFunc KeyFunc, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := keyFunc(c)
		if key == "" {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Error("Rate limit check failed", zap.Error(err), zap.String("key", key))
			c.Next()
			return
		}

		if !allowed {
			metrics.RecordRateLimitHit(c.FullPath())
			logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":       "RATE_LIMITED",
				"message":    "Too many requests, please try again later",
				"request_id": c.GetString("request_id"),
			})
			return
		}

		c.Next()
	}
}

// PrincipalKeyFunc keys by the authenticated principal, falling back to the client IP
func PrincipalKeyFunc(c *gin.Context) string {
	if p := c.GetString(tracing.PrincipalKey); p != "" {
		return "principal:" + p
	}
	return "ip:" + c.ClientIP()
}
