package middleware

import (
	"net/http"
	"time"

	"fleetworks/depot/pkg/telemetry/metrics"
)

// Metrics records request counts and latency by route pattern. Requests
// that match no route are recorded as "unmatched".
func Metrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if collector == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			collector.InFlight(1)
			defer collector.InFlight(-1)

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			route := routePattern(r)
			if route == "" {
				route = "unmatched"
			}
			collector.RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}
