// Package telemetry groups depot's observability packages.
//
// # Components
//
//   - logging: slog setup with runtime level changes and credential redaction
//   - metrics: Prometheus collector for HTTP and fleet operations
//   - tracing: OpenTelemetry tracer with an OTLP gRPC exporter
//   - health: liveness, readiness and version endpoints
package telemetry
