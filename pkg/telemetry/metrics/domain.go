package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics tracks fleet operations.
type DomainMetrics struct {
	formSubmissions      *prometheus.CounterVec
	workOrdersCreated    *prometheus.CounterVec
	maintenanceRuns      *prometheus.CounterVec
	maintenanceGenerated prometheus.Counter
	maintenanceDuration  prometheus.Histogram
	geofenceEvents       *prometheus.CounterVec
	auditDrops           prometheus.Counter
	auditQueueDepth      prometheus.Gauge
}

// NewDomainMetrics creates and registers domain metrics with the provided registry.
func NewDomainMetrics(namespace string, registry *prometheus.Registry) *DomainMetrics {
	dm := &DomainMetrics{
		formSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "forms",
				Name:      "submissions_total",
				Help:      "Form submissions by result",
			},
			[]string{"result"},
		),
		workOrdersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "work_orders",
				Name:      "created_total",
				Help:      "Work orders created by source",
			},
			[]string{"source"},
		),
		maintenanceRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "maintenance",
				Name:      "runs_total",
				Help:      "Maintenance materializer runs by status",
			},
			[]string{"status"},
		),
		maintenanceGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "maintenance",
				Name:      "generated_work_orders_total",
				Help:      "Work orders generated from maintenance schedules",
			},
		),
		maintenanceDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "maintenance",
				Name:      "run_duration_seconds",
				Help:      "Duration of maintenance materializer runs",
				Buckets:   prometheus.DefBuckets,
			},
		),
		geofenceEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "geofence",
				Name:      "events_total",
				Help:      "Geofence transitions by type",
			},
			[]string{"type"},
		),
		auditDrops: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "dropped_total",
				Help:      "Audit entries that could not be persisted",
			},
		),
		auditQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "queue_depth",
				Help:      "Audit entries waiting for the writer",
			},
		),
	}

	registry.MustRegister(
		dm.formSubmissions,
		dm.workOrdersCreated,
		dm.maintenanceRuns,
		dm.maintenanceGenerated,
		dm.maintenanceDuration,
		dm.geofenceEvents,
		dm.auditDrops,
		dm.auditQueueDepth,
	)

	return dm
}
