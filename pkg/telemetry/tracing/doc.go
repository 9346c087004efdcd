// Package tracing wires OpenTelemetry tracing with an OTLP gRPC exporter.
//
// When telemetry.tracing.enabled is false the tracer is a noop and adds no
// exporter or background goroutines.
package tracing
