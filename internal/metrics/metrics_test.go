package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveIngestion("next", "ok", time.Second)
	m.ObserveOracle("compare", "ok", time.Second)
	m.ChangeDetected("addition")
	m.ChangesDropped(2)
	m.SegmentFallback("invalid_range")
	m.ReviewAction("edit")
	m.MailDispatched("sent", 1)
	m.IngestionState("committed")
}

func TestCountersRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveIngestion("next", "ok", 2*time.Second)
	m.ObserveIngestion("next", "ok", time.Second)
	m.ChangeDetected("modification")
	m.ChangesDropped(3)

	if got := testutil.ToFloat64(m.IngestionsTotal.WithLabelValues("next", "ok")); got != 2 {
		t.Errorf("ingestions_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ChangesDetectedTotal.WithLabelValues("modification")); got != 1 {
		t.Errorf("changes_detected_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ChangesDroppedTotal); got != 3 {
		t.Errorf("changes_dropped_total = %v, want 3", got)
	}
}
