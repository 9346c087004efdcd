// Package metrics exposes depot's Prometheus metrics.
//
// HTTP metrics are recorded by the API middleware; domain metrics (form
// submissions, generated work orders, maintenance runs, geofence events and
// audit queue health) are recorded by the services that own them.
package metrics
