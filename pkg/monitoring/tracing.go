package monitoring

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// tracerName is the instrumentation scope name registered with OTel.
const tracerName = "cloudrun-deployer"

// Tracer is the package-level OTel tracer for the deployer.
// It returns a noop tracer when no TracerProvider is registered,
// making instrumentation zero-cost in the default configuration.
var Tracer = otel.Tracer(tracerName)

// StartOperationSpan starts a new span for a lifecycle operation.
// The span is annotated with the fully-qualified service name and role.
// Callers must call span.End() when the operation completes.
func StartOperationSpan(ctx context.Context, spanName, service, role string) (context.Context, trace.Span) {
	ctx, span := Tracer.Start(ctx, spanName,
		trace.WithAttributes(
			attribute.String("cloudrun.service.name", service),
			attribute.String("cloudrun.service.role", role),
		),
	)
	return ctx, span
}

// StartChildSpan starts a child span under the current trace context.
// Use this for sub-operations within a lifecycle operation (e.g., CreateService, WaitForReady).
func StartChildSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, spanName)
}

// RecordSpanError records an error on a span and sets the span status to Error.
// If err is nil, this is a no-op.
func RecordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// EnrichLoggerWithTrace returns a context whose logger carries the trace and
// span IDs of the active span. The context is returned unchanged when no
// valid span is active.
func EnrichLoggerWithTrace(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ctx
	}
	logger := log.FromContext(ctx).WithValues(
		"trace_id", sc.TraceID().String(),
		"span_id", sc.SpanID().String(),
	)
	return log.IntoContext(ctx, logger)
}
