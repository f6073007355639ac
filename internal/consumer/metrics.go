package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Reasons a change event is rejected without reaching the audit table.
const (
	rejectMissingHeader     = "missing_header"
	rejectUnsupportedType   = "unsupported_event_type"
	rejectInvalidInstanceID = "invalid_instance_id"
	rejectInvalidPayload    = "invalid_payload"
)

var (
	auditedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flexurl",
		Subsystem: "audit",
		Name:      "events_recorded_total",
		Help:      "Change events written to the audit table, by event type.",
	}, []string{"event_type"})

	auditRetryCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flexurl",
		Subsystem: "audit",
		Name:      "write_retries_total",
		Help:      "Failed audit writes that were retried, by event type.",
	}, []string{"event_type"})

	rejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flexurl",
		Subsystem: "audit",
		Name:      "events_rejected_total",
		Help:      "Change events skipped because they could not be decoded, by reason.",
	}, []string{"reason"})

	lastAuditedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "flexurl",
		Subsystem: "audit",
		Name:      "last_event_timestamp_seconds",
		Help:      "Kafka timestamp of the most recently audited change event.",
	})
)

func init() {
	prometheus.MustRegister(auditedCounter, auditRetryCounter, rejectedCounter, lastAuditedGauge)
}

func recordAudited(msg Message) {
	auditedCounter.WithLabelValues(msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		lastAuditedGauge.Set(float64(msg.Timestamp.Unix()))
	}
}

func recordRetry(msg Message) {
	auditRetryCounter.WithLabelValues(msg.EventType).Inc()
}

func recordRejected(reason string) {
	rejectedCounter.WithLabelValues(reason).Inc()
}
