// Package health implements the /health, /ready and /version endpoints.
//
// Liveness never touches dependencies. Readiness runs registered checks
// (database ping, document root) concurrently, each under its own timeout.
package health
