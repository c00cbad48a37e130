package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/pkg/auth"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
	"github.com/cafe-connect/trust_ledger/pkg/metrics"
	"github.com/cafe-connect/trust_ledger/pkg/sanitize"
	"github.com/cafe-connect/trust_ledger/pkg/tracing"
)

// RequestID adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := sanitize.LogString(c.GetHeader("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Logger logs HTTP requests with structured logging
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		path = sanitize.LogString(path)

		requestLogger := log.ForRequest(c.GetString("request_id"), c.Request.Method, path)
		c.Set("logger", requestLogger)

		c.Next()

		if p := c.GetString(tracing.PrincipalKey); p != "" {
			requestLogger = requestLogger.ForPrincipal(p)
		}
		requestLogger.CtxInfo(c.Request.Context(), "HTTP Request",
			"status_code", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"response_size", c.Writer.Size(),
		)
	}
}

// Metrics records request counts and latency by route template
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

// Recovery handles panics and returns 500 errors
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID := c.GetString("request_id")
				log.ForRequest(requestID, c.Request.Method, c.Request.URL.Path).Error("Panic recovered",
					"error", fmt.Sprint(err),
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":       "INTERNAL_ERROR",
					"message":    "Internal server error",
					"request_id": requestID,
				})
			}
		}()
		c.Next()
	}
}

// CORS handles Cross-Origin Resource Sharing
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		for _, allowed := range allowedOrigins {
			if allowed == "*" || allowed == origin {
				c.Header("Access-Control-Allow-Origin", origin)
				break
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-Trace-ID")
		c.Header("Access-Control-Max-Age", "3600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SecurityHeaders adds security headers to responses
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// Authentication verifies the bearer token and stores the caller's principal.
// The anonymous sentinel is rejected even when correctly signed.
func Authentication(cfg auth.Config, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if header == "" || !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			metrics.RecordAuthenticationAttempt("missing")
			unauthorized(c, "Authorization header required")
			return
		}

		subject, err := auth.ParseSubject(cfg, token)
		if err != nil {
			metrics.RecordAuthenticationAttempt("invalid")
			log.CtxWarn(c.Request.Context(), "Rejected bearer token",
				"request_id", c.GetString("request_id"),
				"error", err,
			)
			unauthorized(c, "Invalid token")
			return
		}

		principal, err := entities.ParsePrincipal(subject)
		if err != nil || principal.IsAnonymous() {
			metrics.RecordAuthenticationAttempt("anonymous")
			unauthorized(c, "Anonymous callers are not allowed")
			return
		}

		metrics.RecordAuthenticationAttempt("success")
		c.Set(tracing.PrincipalKey, principal.String())
		c.Next()
	}
}

// Principal returns the caller stored by Authentication
func Principal(c *gin.Context) entities.Principal {
	return entities.Principal(c.GetString(tracing.PrincipalKey))
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":       "UNAUTHORIZED",
		"message":    message,
		"request_id": c.GetString("request_id"),
	})
}
