package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"fleetworks/depot/pkg/config"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_Disabled(t *testing.T) {
	tr, err := New(context.Background(), &config.TracingConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if tr.Enabled() {
		t.Error("disabled config should produce a disabled tracer")
	}

	ctx, span := tr.Start(context.Background(), "op")
	span.End()
	if TraceID(ctx) != "" {
		t.Error("noop tracer should not produce a valid trace id")
	}
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(context.Background(), nil, "test"); err == nil {
		t.Error("expected error for nil config")
	}
	cfg := &config.TracingConfig{Enabled: true, SampleRatio: 2}
	if _, err := New(context.Background(), cfg, "test"); err == nil {
		t.Error("expected error for sample ratio out of range")
	}
}

func TestTracer_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := NewWithProvider(provider)
	defer tr.Shutdown(context.Background())

	ctx, parent := tr.Start(context.Background(), "parent")
	_, child := tr.Start(ctx, "child")
	SetStatus(child, errors.New("boom"))
	child.End()
	SetStatus(parent, nil)
	parent.End()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	if spans[0].Name() != "child" || spans[0].Status().Code != codes.Error {
		t.Errorf("child span = %s %v", spans[0].Name(), spans[0].Status())
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("child span should be parented to parent span")
	}
	if TraceID(ctx) == "" {
		t.Error("TraceID() should be set inside a recorded span")
	}
}

func TestPropagation_RoundTrip(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tr := NewWithProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	defer tr.Shutdown(context.Background())

	ctx, span := tr.Start(context.Background(), "outgoing")
	defer span.End()

	headers := http.Header{}
	Inject(ctx, headers)
	if headers.Get("traceparent") == "" {
		t.Fatal("Inject() did not set traceparent")
	}

	extracted := Extract(context.Background(), headers)
	_, remote := tr.Start(extracted, "incoming")
	remote.End()

	if got, want := remote.SpanContext().TraceID().String(), TraceID(ctx); got != want {
		t.Errorf("extracted trace id = %s, want %s", got, want)
	}
}

func TestNilTracer(t *testing.T) {
	var tr *Tracer
	ctx, span := tr.Start(context.Background(), "op")
	span.End()
	if ctx == nil {
		t.Fatal("nil tracer returned nil context")
	}
	if tr.Enabled() {
		t.Error("nil tracer should be disabled")
	}
}
