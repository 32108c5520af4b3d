// Package metrics exposes Prometheus metrics for the service container and
// the node runtime around it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "servicecontainer"

// Container metrics.
var (
	// ServicesInstalled is the number of live controllers.
	ServicesInstalled = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "services_installed",
		Help:      "Number of services currently installed",
	})

	// ServicesByPhase is the number of services per lifecycle phase, refreshed
	// by the collector.
	ServicesByPhase = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "services_by_phase",
		Help:      "Number of installed services per lifecycle phase",
	}, []string{"phase"})

	// LifecycleEventsTotal counts processed lifecycle events by type.
	LifecycleEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lifecycle_events_total",
		Help:      "Total number of lifecycle events processed by the container",
	}, []string{"event"})

	// StartDuration observes the time from installation to started.
	StartDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "service_start_duration_seconds",
		Help:      "Time from installation until a service has started",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~262s
	}, []string{"type"})

	// StartFailuresTotal counts failed starts by service type.
	StartFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "service_start_failures_total",
		Help:      "Total number of failed service starts",
	}, []string{"type"})

	// CloseDuration observes how long closing the container took.
	CloseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "container_close_duration_seconds",
		Help:      "Duration of container shutdown in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)

// Node runtime metrics.
var (
	// RestartsTotal counts restarts scheduled for failed services.
	RestartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "service_restarts_total",
		Help:      "Total number of restarts scheduled for failed services",
	}, []string{"service"})

	// ManifestReconcilesTotal counts manifest reconciliations by result.
	ManifestReconcilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "manifest_reconciles_total",
		Help:      "Total number of manifest reconciliations",
	}, []string{"result"})

	// EventBusDroppedEvents counts events dropped for slow subscribers.
	EventBusDroppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_bus_dropped_events_total",
		Help:      "Total number of events dropped because a subscriber buffer was full",
	}, []string{"event_type"})

	// CollectorStatus reports whether each registered provider collected
	// successfully (1) or not (0).
	CollectorStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "collector_status",
		Help:      "Status of metrics providers (1=ok, 0=failed)",
	}, []string{"provider"})

	// StartTime is the unix time the node started.
	StartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "start_time_seconds",
		Help:      "Unix timestamp when the node started",
	})
)

// Handler returns the Prometheus HTTP handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRestart records a scheduled restart.
func RecordRestart(service string) {
	RestartsTotal.WithLabelValues(service).Inc()
}

// RecordReconcile records the outcome of a manifest reconciliation.
func RecordReconcile(err error) {
	if err != nil {
		ManifestReconcilesTotal.WithLabelValues("error").Inc()
		return
	}
	ManifestReconcilesTotal.WithLabelValues("ok").Inc()
}

// RecordClose records container shutdown duration.
func RecordClose(d time.Duration) {
	CloseDuration.Observe(d.Seconds())
}
