package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	// Namespace is the metrics namespace for the intermediate-state controller.
	Namespace = "clustersync"
)

var (
	// PartitionsClassifiedTotal tracks classification outcomes per
	// resource and rebalance type.
	PartitionsClassifiedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "partitions_classified_total",
			Help:      "Total number of partitions classified by rebalance type",
		},
		[]string{"resource", "rebalance_type"},
	)

	// PartitionsThrottledTotal tracks partitions whose admission was
	// throttled, per resource and rebalance type.
	PartitionsThrottledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "partitions_throttled_total",
			Help:      "Total number of partitions whose admission was throttled",
		},
		[]string{"resource", "rebalance_type"},
	)

	// VersionGateFailuresTotal tracks fatal version compatibility
	// gate failures.
	VersionGateFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "version_gate_failures_total",
			Help:      "Total number of fatal version compatibility gate failures",
		},
		[]string{"reason"},
	)

	// ComputeDuration tracks the time taken to compute the
	// intermediate state for one invocation.
	ComputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "compute_duration_seconds",
			Help:      "Time taken to compute the intermediate state for one invocation",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 15),
		},
		[]string{"result"},
	)

	// ComputeErrorsTotal tracks fatal errors raised by the computation.
	ComputeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "compute_errors_total",
			Help:      "Total number of fatal errors raised by the intermediate-state computation",
		},
		[]string{"error_type"},
	)

	// ResourcesProcessedTotal tracks the total number of resources
	// processed across invocations.
	ResourcesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "resources_processed_total",
			Help:      "Total number of resources processed by the intermediate-state computation",
		},
		[]string{"mode"},
	)

	// AuditEventsTotal tracks audit events emitted, by type, category
	// and severity.
	AuditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "audit_events_total",
			Help:      "Total number of audit events emitted",
		},
		[]string{"event_type", "category", "severity"},
	)
)

// RecordClassification increments the classification counter for one
// (resource, rebalance type) pair.
func RecordClassification(resource, rebalanceType string) {
	PartitionsClassifiedTotal.WithLabelValues(SanitizeResourceLabel(resource), rebalanceType).Inc()
}

// RecordThrottled increments the throttled counter for one (resource,
// rebalance type) pair.
func RecordThrottled(resource, rebalanceType string) {
	PartitionsThrottledTotal.WithLabelValues(SanitizeResourceLabel(resource), rebalanceType).Inc()
}

// RecordVersionGateFailure increments the version gate failure
// counter for the given reason.
func RecordVersionGateFailure(reason string) {
	VersionGateFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordComputeError increments the compute error counter for the
// given error type.
func RecordComputeError(errorType string) {
	ComputeErrorsTotal.WithLabelValues(errorType).Inc()
}

// ObserveComputeDuration records how long one invocation took.
func ObserveComputeDuration(result string, seconds float64) {
	ComputeDuration.WithLabelValues(result).Observe(seconds)
}

// RecordResourceProcessed increments the resources-processed counter
// for the given rebalance mode.
func RecordResourceProcessed(mode string) {
	ResourcesProcessedTotal.WithLabelValues(mode).Inc()
}

// RegisterMetrics registers all metrics with the controller-runtime
// metrics registry.
func RegisterMetrics() {
	ctrlmetrics.Registry.MustRegister(
		PartitionsClassifiedTotal,
		PartitionsThrottledTotal,
		VersionGateFailuresTotal,
		ComputeDuration,
		ComputeErrorsTotal,
		ResourcesProcessedTotal,
		AuditEventsTotal,
	)
}

// ResetMetrics resets all metrics. Useful for testing.
func ResetMetrics() {
	PartitionsClassifiedTotal.Reset()
	PartitionsThrottledTotal.Reset()
	VersionGateFailuresTotal.Reset()
	ComputeDuration.Reset()
	ComputeErrorsTotal.Reset()
	ResourcesProcessedTotal.Reset()
	AuditEventsTotal.Reset()
}
