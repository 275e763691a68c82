package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestReconcilerMetricsObserve(t *testing.T) {
	m := NewReconcilerMetrics(prometheus.NewRegistry())
	m.ObserveSyncRun("mutated", 0.25)
	m.ObserveSyncRun("skipped", 0.01)
	m.ObserveMutation("create")
	m.ObserveMutation("update")
	m.ObserveRepaint(8, 2)
}

func TestReconcilerMetricsNilSafe(t *testing.T) {
	var m *ReconcilerMetrics
	m.ObserveSyncRun("mutated", 0.1)
	m.ObserveMutation("create")
	m.ObserveRepaint(1, 0)
}
