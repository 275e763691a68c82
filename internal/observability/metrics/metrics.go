package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconcilerMetrics exposes counters for payment sync and calendar
// repaint flows.
type ReconcilerMetrics struct {
	syncRuns      *prometheus.CounterVec
	syncMutations *prometheus.CounterVec
	repaintTotal  *prometheus.CounterVec
	syncLatency   *prometheus.HistogramVec
}

func NewReconcilerMetrics(reg prometheus.Registerer) *ReconcilerMetrics {
	m := &ReconcilerMetrics{
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "therabill",
			Subsystem: "payments",
			Name:      "sync_runs_total",
			Help:      "Month sync invocations",
		}, []string{"outcome"}),
		syncMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "therabill",
			Subsystem: "payments",
			Name:      "sync_mutations_total",
			Help:      "Payment rows created or updated by sync",
		}, []string{"op"}),
		repaintTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "therabill",
			Subsystem: "calendar",
			Name:      "repaint_total",
			Help:      "Event color patches by result",
		}, []string{"status"}),
		syncLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "therabill",
			Subsystem: "payments",
			Name:      "sync_latency_seconds",
			Help:      "Latency of month sync",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.syncRuns, m.syncMutations, m.repaintTotal, m.syncLatency)
	return m
}

func (m *ReconcilerMetrics) ObserveSyncRun(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(outcome).Inc()
	m.syncLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *ReconcilerMetrics) ObserveMutation(op string) {
	if m == nil {
		return
	}
	m.syncMutations.WithLabelValues(op).Inc()
}

func (m *ReconcilerMetrics) ObserveRepaint(succeeded, failed int) {
	if m == nil {
		return
	}
	m.repaintTotal.WithLabelValues("succeeded").Add(float64(succeeded))
	m.repaintTotal.WithLabelValues("failed").Add(float64(failed))
}
