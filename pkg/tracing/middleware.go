package tracing

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "http-server"

// PrincipalKey is the gin context key the auth middleware stores the caller under
const PrincipalKey = "principal"

// HTTPMiddleware starts a server span per request and exposes the trace id as X-Trace-ID
func HTTPMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)

	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(
			c.Request.Context(),
			propagation.HeaderCarrier(c.Request.Header),
		)

		spanName := fmt.Sprintf("%s %s", c.Request.Method, c.FullPath())
		if c.FullPath() == "" {
			spanName = fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path)
		}

		ctx, span := tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.target", c.Request.URL.Path),
				attribute.String("http.route", c.FullPath()),
				attribute.String("http.user_agent", c.Request.UserAgent()),
				attribute.String("net.peer.ip", c.ClientIP()),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		if span.SpanContext().HasTraceID() {
			c.Header("X-Trace-ID", span.SpanContext().TraceID().String())
		}
		c.Set("trace_id", span.SpanContext().TraceID().String())

		c.Next()

		// Auth runs after this middleware, so the principal is only known now
		if p, ok := c.Get(PrincipalKey); ok {
			span.SetAttributes(attribute.String("enduser.id", fmt.Sprint(p)))
		}

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int("http.response.size", c.Writer.Size()),
		)
		switch {
		case len(c.Errors) > 0:
			span.RecordError(c.Errors.Last())
			span.SetStatus(codes.Error, c.Errors.Last().Error())
		case status >= 500:
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		case status >= 400:
			span.SetStatus(codes.Error, fmt.Sprintf("Client error: HTTP %d", status))
		default:
			span.SetStatus(codes.Ok, "")
		}
	}
}

// AddSpanAttributes adds attributes to the request's span
func AddSpanAttributes(c *gin.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(c.Request.Context()).SetAttributes(attrs...)
}

// RecordError records err on the request's span
func RecordError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(c.Request.Context())
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
