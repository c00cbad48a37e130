package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	graphTracerName  = "graph"
	clientTracerName = "payment-network"
)

// GraphSpanConfig describes one graph database statement
type GraphSpanConfig struct {
	Operation    string // read, write
	Database     string
	Statement    string
	IncludeQuery bool
}

// TraceGraph wraps a graph database call in a client span
func TraceGraph(ctx context.Context, cfg GraphSpanConfig, fn func(context.Context) error) error {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "neo4j"),
		attribute.String("db.operation", cfg.Operation),
	}
	if cfg.Database != "" {
		attrs = append(attrs, attribute.String("db.name", cfg.Database))
	}
	if cfg.IncludeQuery && cfg.Statement != "" {
		attrs = append(attrs, attribute.String("db.statement", cfg.Statement))
	}

	ctx, span := otel.Tracer(graphTracerName).Start(ctx, "graph "+cfg.Operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	return finish(span, fn(ctx))
}

// TraceExternalCall wraps a call to a payment or settlement network in a client span
func TraceExternalCall(ctx context.Context, service, endpoint string, fn func(context.Context) error) error {
	ctx, span := otel.Tracer(clientTracerName).Start(ctx, service+" "+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("peer.service", service),
			attribute.String("rpc.method", endpoint),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	span.SetAttributes(attribute.Float64("call.duration_ms", float64(time.Since(start).Milliseconds())))
	return finish(span, err)
}

func finish(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
