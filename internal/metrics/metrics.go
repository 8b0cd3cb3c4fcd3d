// Package metrics provides Prometheus metrics for fineprint
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	IngestionsTotal   *prometheus.CounterVec
	IngestionDuration *prometheus.HistogramVec
	IngestionStage    *prometheus.CounterVec

	OracleRequestsTotal   *prometheus.CounterVec
	OracleRequestDuration *prometheus.HistogramVec

	ChangesDetectedTotal *prometheus.CounterVec
	ChangesDroppedTotal  prometheus.Counter
	SegmentFallbacks     *prometheus.CounterVec

	ReviewActionsTotal *prometheus.CounterVec
	MailDispatchTotal  *prometheus.CounterVec
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.IngestionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fineprint_ingestions_total",
			Help: "Total number of version ingestions by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	m.IngestionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fineprint_ingestion_duration_seconds",
			Help:    "Duration of version ingestions in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)
	m.IngestionStage = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fineprint_ingestion_stage_total",
			Help: "Ingestion state machine transitions",
		},
		[]string{"state"},
	)

	m.OracleRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fineprint_oracle_requests_total",
			Help: "Total number of oracle requests by operation and outcome",
		},
		[]string{"op", "outcome"},
	)
	m.OracleRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fineprint_oracle_request_duration_seconds",
			Help:    "Duration of oracle requests in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"op"},
	)

	m.ChangesDetectedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fineprint_changes_detected_total",
			Help: "Normalized change records by type",
		},
		[]string{"type"},
	)
	m.ChangesDroppedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "fineprint_changes_dropped_total",
			Help: "Oracle change elements rejected by schema validation",
		},
	)
	m.SegmentFallbacks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fineprint_segment_fallbacks_total",
			Help: "Segmentations that fell back to full text, by reason",
		},
		[]string{"reason"},
	)

	m.ReviewActionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fineprint_review_actions_total",
			Help: "Review workflow mutations by action",
		},
		[]string{"action"},
	)
	m.MailDispatchTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fineprint_mail_dispatch_total",
			Help: "Notification emails by outcome",
		},
		[]string{"outcome"},
	)

	return m
}

func (m *Metrics) ObserveIngestion(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.IngestionsTotal.WithLabelValues(kind, outcome).Inc()
	m.IngestionDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) IngestionState(state string) {
	if m == nil {
		return
	}
	m.IngestionStage.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveOracle(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.OracleRequestsTotal.WithLabelValues(op, outcome).Inc()
	m.OracleRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) ChangeDetected(changeType string) {
	if m == nil {
		return
	}
	m.ChangesDetectedTotal.WithLabelValues(changeType).Inc()
}

func (m *Metrics) ChangesDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ChangesDroppedTotal.Add(float64(n))
}

func (m *Metrics) SegmentFallback(reason string) {
	if m == nil {
		return
	}
	m.SegmentFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) ReviewAction(action string) {
	if m == nil {
		return
	}
	m.ReviewActionsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) MailDispatched(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MailDispatchTotal.WithLabelValues(outcome).Add(float64(n))
}
