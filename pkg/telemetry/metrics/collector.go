package metrics

import (
	"strconv"
	"time"

	"fleetworks/depot/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns the Prometheus registry and every depot metric.
//
// A nil *Collector is valid: all Record methods are no-ops, so services can
// be constructed without metrics in tests and CLI commands.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	http   *HTTPMetrics
	domain *DomainMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry with the Go
// runtime and process collectors is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		http:     NewHTTPMetrics(cfg.Namespace, registry),
		domain:   NewDomainMetrics(cfg.Namespace, registry),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordHTTPRequest records a completed HTTP request. route is the matched
// route pattern, never the raw path, to keep label cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.http.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.http.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// InFlight adjusts the in-flight request gauge by delta.
func (c *Collector) InFlight(delta float64) {
	if !c.enabled() {
		return
	}
	c.http.inFlight.Add(delta)
}

// RecordFormSubmission counts a form submission attempt.
// result is "accepted" or "rejected".
func (c *Collector) RecordFormSubmission(result string) {
	if !c.enabled() {
		return
	}
	c.domain.formSubmissions.WithLabelValues(result).Inc()
}

// RecordWorkOrderCreated counts a created work order by source
// (manual, schedule, inspection, dtc).
func (c *Collector) RecordWorkOrderCreated(source string) {
	if !c.enabled() {
		return
	}
	c.domain.workOrdersCreated.WithLabelValues(source).Inc()
}

// RecordMaintenanceRun records one materializer run.
func (c *Collector) RecordMaintenanceRun(generated int, duration time.Duration, err error) {
	if !c.enabled() {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.domain.maintenanceRuns.WithLabelValues(status).Inc()
	c.domain.maintenanceGenerated.Add(float64(generated))
	c.domain.maintenanceDuration.Observe(duration.Seconds())
}

// RecordGeofenceEvent counts a geofence transition ("enter" or "exit").
func (c *Collector) RecordGeofenceEvent(eventType string) {
	if !c.enabled() {
		return
	}
	c.domain.geofenceEvents.WithLabelValues(eventType).Inc()
}

// RecordAuditDrop counts an audit entry that could not be persisted.
func (c *Collector) RecordAuditDrop() {
	if !c.enabled() {
		return
	}
	c.domain.auditDrops.Inc()
}

// SetAuditQueueDepth reports the number of audit entries waiting to be written.
func (c *Collector) SetAuditQueueDepth(n int) {
	if !c.enabled() {
		return
	}
	c.domain.auditQueueDepth.Set(float64(n))
}
