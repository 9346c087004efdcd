// Package middleware provides the HTTP middleware of the depot API.
//
// The router applies them outermost first:
//
//  1. Recovery: turns handler panics into 500 responses
//  2. Logging: one structured log line per request
//  3. RequestID: accepts or generates X-Request-ID
//  4. CORS: cross-origin headers and preflight responses
//  5. Tracing: a server span per request
//  6. Metrics: request counters and latency by route pattern
//  7. Timeout: a deadline on the request context
//  8. Authenticate: resolves the actor from a session token or API key
//  9. RateLimit: a token bucket per actor
//
// RequireRole guards individual route groups after authentication.
package middleware
