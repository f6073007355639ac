package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	syncCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flexurl",
		Subsystem: "lifecycle",
		Name:      "syncs_total",
		Help:      "Parameter syncs grouped by outcome (synced, skipped, deleted).",
	}, []string{"outcome"})

	skippedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flexurl",
		Subsystem: "lifecycle",
		Name:      "sync_skipped_total",
		Help:      "Submissions rejected by the lifecycle hook, labeled by column and reason.",
	}, []string{"column", "reason"})

	lastSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "flexurl",
		Subsystem: "lifecycle",
		Name:      "last_sync_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful parameter sync.",
	})

	mutationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flexurl",
		Subsystem: "mutator",
		Name:      "requests_total",
		Help:      "Outbound requests mutated, labeled by action.",
	}, []string{"action"})

	appliedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flexurl",
		Subsystem: "mutator",
		Name:      "parameters_applied_total",
		Help:      "Parameters written into outbound requests, labeled by action and target map.",
	}, []string{"action", "target"})

	resolutionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flexurl",
		Subsystem: "resolver",
		Name:      "placeholders_total",
		Help:      "Placeholders resolved, labeled by namespace and whether a value was found.",
	}, []string{"namespace", "result"})

	publishFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flexurl",
		Subsystem: "events",
		Name:      "publish_failures_total",
		Help:      "Change events that could not be published, labeled by event type.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(syncCounter, skippedCounter, lastSyncGauge, mutationCounter, appliedCounter, resolutionCounter, publishFailures)
}

// RecordSynced counts a successful sync and moves the watermark.
func RecordSynced(ts time.Time) {
	syncCounter.WithLabelValues("synced").Inc()
	if !ts.IsZero() {
		lastSyncGauge.Set(float64(ts.Unix()))
	}
}

// RecordSyncSkipped counts a submission the lifecycle hook refused to write.
func RecordSyncSkipped(column, reason string) {
	syncCounter.WithLabelValues("skipped").Inc()
	skippedCounter.WithLabelValues(column, reason).Inc()
}

// RecordDeleted counts an instance deletion.
func RecordDeleted() {
	syncCounter.WithLabelValues("deleted").Inc()
}

// RecordMutation counts one outbound request and the parameters written into it.
func RecordMutation(action, target string, applied int) {
	mutationCounter.WithLabelValues(action).Inc()
	if applied > 0 {
		appliedCounter.WithLabelValues(action, target).Add(float64(applied))
	}
}

// RecordResolution counts a placeholder lookup.
func RecordResolution(namespace string, found bool) {
	result := "empty"
	if found {
		result = "found"
	}
	resolutionCounter.WithLabelValues(namespace, result).Inc()
}

// RecordPublishFailure counts an event that did not reach the broker.
func RecordPublishFailure(eventType string) {
	publishFailures.WithLabelValues(eventType).Inc()
}
