// Package server runs the depot HTTP listener.
//
// A Server mounts the API router under /api/ and serves the operational
// endpoints beside it:
//
//	/health    liveness, always 200 while the process runs
//	/ready     readiness, 503 while a registered check fails
//	/version   build information
//	/metrics   Prometheus exposition (path configurable, omitted when disabled)
//
// # Lifecycle
//
// Start blocks until its context is cancelled and then shuts down
// gracefully, waiting up to server.shutdown_timeout for in-flight requests:
//
//	srv := server.New(cfg, api.NewRouter(a.APIDeps()), a.Health, a.Metrics, build)
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Serve does the same on a caller-supplied listener, which tests use to
// bind an ephemeral port.
//
// TLS is not terminated here; run the server behind a proxy that does.
package server
