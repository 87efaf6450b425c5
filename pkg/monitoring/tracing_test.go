package monitoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

func TestStartOperationSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	// Point the package-level Tracer at our test provider.
	Tracer = tp.Tracer(tracerName)

	ctx := context.Background()
	ctx, span := StartOperationSpan(
		ctx,
		"Lifecycle.Deploy",
		"projects/p/locations/us-central1/services/psm-server",
		"server",
	)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if s.Name != "Lifecycle.Deploy" {
		t.Errorf("span name = %q, want %q", s.Name, "Lifecycle.Deploy")
	}

	wantAttrs := map[string]string{
		"cloudrun.service.name": "projects/p/locations/us-central1/services/psm-server",
		"cloudrun.service.role": "server",
	}
	for key, want := range wantAttrs {
		found := false
		for _, attr := range s.Attributes {
			if string(attr.Key) == key {
				found = true
				if attr.Value.AsString() != want {
					t.Errorf("attribute %q = %q, want %q", key, attr.Value.AsString(), want)
				}
			}
		}
		if !found {
			t.Errorf("attribute %q not found on span", key)
		}
	}

	// Verify the context carries the span.
	if ctx == context.Background() {
		t.Error("expected context to carry span")
	}
}

func TestStartChildSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	Tracer = tp.Tracer(tracerName)

	ctx := context.Background()
	ctx, parent := StartOperationSpan(ctx, "Lifecycle.Cleanup", "svc", "client")
	_, child := StartChildSpan(ctx, "DeleteService")
	child.End()
	parent.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	// Child span should reference the parent's span context.
	childSpan := spans[0]
	parentSpan := spans[1]
	if childSpan.Parent.SpanID() != parentSpan.SpanContext.SpanID() {
		t.Errorf(
			"child parent span ID = %s, want %s",
			childSpan.Parent.SpanID(),
			parentSpan.SpanContext.SpanID(),
		)
	}
	if childSpan.Name != "DeleteService" {
		t.Errorf("child span name = %q, want %q", childSpan.Name, "DeleteService")
	}
}

func TestRecordSpanError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	Tracer = tp.Tracer(tracerName)

	t.Run("records error on span", func(t *testing.T) {
		exporter.Reset()
		_, span := StartOperationSpan(context.Background(), "Op", "svc", "server")
		testErr := errors.New("something failed")
		RecordSpanError(span, testErr)
		span.End()

		spans := exporter.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("expected 1 span, got %d", len(spans))
		}

		s := spans[0]
		if s.Status.Code != codes.Error {
			t.Errorf("span status = %v, want Error", s.Status.Code)
		}
		if s.Status.Description != "something failed" {
			t.Errorf(
				"span status description = %q, want %q",
				s.Status.Description,
				"something failed",
			)
		}

		// Check that an error event was recorded.
		foundErrorEvent := false
		for _, event := range s.Events {
			if event.Name == "exception" {
				foundErrorEvent = true
				for _, attr := range event.Attributes {
					if attr.Key == attribute.Key("exception.message") &&
						attr.Value.AsString() == "something failed" {
						break
					}
				}
			}
		}
		if !foundErrorEvent {
			t.Error("expected an exception event on the span")
		}
	})

	t.Run("nil error is no-op", func(t *testing.T) {
		exporter.Reset()
		_, span := StartOperationSpan(context.Background(), "Op", "svc", "server")
		RecordSpanError(span, nil)
		span.End()

		spans := exporter.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("expected 1 span, got %d", len(spans))
		}
		if spans[0].Status.Code == codes.Error {
			t.Error("nil error should not set error status")
		}
	})
}

func TestEnrichLoggerWithTrace(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	Tracer = tp.Tracer(tracerName)

	t.Run("adds trace_id and span_id to logger", func(t *testing.T) {
		ctx, span := Tracer.Start(context.Background(), "test-op")
		defer span.End()

		var lines []string
		sink := funcr.New(func(prefix, args string) {
			lines = append(lines, args)
		}, funcr.Options{})
		ctx = logr.NewContext(ctx, sink)

		enrichedCtx := EnrichLoggerWithTrace(ctx)
		if enrichedCtx == ctx {
			t.Error("expected enriched context to differ from original")
		}
		log.FromContext(enrichedCtx).Info("hello")

		if len(lines) != 1 {
			t.Fatalf("expected 1 log line, got %d", len(lines))
		}
		wantTrace := span.SpanContext().TraceID().String()
		if !strings.Contains(lines[0], wantTrace) {
			t.Errorf("log line %q does not contain trace ID %q", lines[0], wantTrace)
		}
		if !strings.Contains(lines[0], `"span_id"`) {
			t.Errorf("log line %q does not contain span_id", lines[0])
		}
	})

	t.Run("noop for invalid span context", func(t *testing.T) {
		ctx := logr.NewContext(context.Background(), logr.Discard())
		result := EnrichLoggerWithTrace(ctx)
		// With no valid span, the context should be returned unchanged.
		if result != ctx {
			t.Error("expected unchanged context for invalid span")
		}
	})
}
