package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.EventScheduled("global")
	m.EventScheduled("global")
	m.EventScheduled("inst1")
	m.EventFired("expiry")
	m.DataPruned(3)
	m.DataPruned(0)
	m.NotificationIgnored("malformed")
	m.StoreError("scan")
	m.ObserveHandler("test", 10*time.Millisecond)

	if got := testutil.ToFloat64(m.scheduled.WithLabelValues("global")); got != 2 {
		t.Errorf("expected 2 global scheduled, got %v", got)
	}
	if got := testutil.ToFloat64(m.fired.WithLabelValues("expiry")); got != 1 {
		t.Errorf("expected 1 fired, got %v", got)
	}
	if got := testutil.ToFloat64(m.pruned); got != 3 {
		t.Errorf("expected 3 pruned, got %v", got)
	}
	if got := testutil.CollectAndCount(m.handlerDuration); got != 1 {
		t.Errorf("expected 1 handler series, got %d", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	// Не должно паниковать
	m.EventScheduled("global")
	m.EventNotScheduled()
	m.EventFired("instant")
	m.EventDeleted()
	m.DataPruned(1)
	m.NotificationIgnored("foreign_scope")
	m.StoreError("get")
	m.ObserveHandler("test", time.Second)
}
