package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the synchronization-core counters. A nil *Metrics is
// valid and records nothing, so tests and minimal embeddings can pass nil.
type Metrics struct {
	registry *prometheus.Registry

	writesIssued      prometheus.Counter
	writesCoalesced   prometheus.Counter
	writesCancelled   prometheus.Counter
	writesFailed      prometheus.Counter
	pushApplied       *prometheus.CounterVec
	pushIgnored       prometheus.Counter
	pushDuplicates    prometheus.Counter
	optimisticInserts prometheus.Counter
	rollbacks         prometheus.Counter
	saveDuration      prometheus.Histogram
}

// NewMetrics creates and registers the metric set on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.writesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flowsync", Name: "writes_issued_total",
		Help: "Outbound document writes issued after the quiescence window.",
	})
	m.writesCoalesced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flowsync", Name: "writes_coalesced_total",
		Help: "Save intents superseded by a later intent before the window elapsed.",
	})
	m.writesCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flowsync", Name: "writes_cancelled_total",
		Help: "Pending writes suppressed by document deselection.",
	})
	m.writesFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flowsync", Name: "writes_failed_total",
		Help: "Document writes that completed with an error.",
	})
	m.pushApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowsync", Name: "push_events_applied_total",
		Help: "Push-channel events merged into the view.",
	}, []string{"type"})
	m.pushIgnored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flowsync", Name: "push_events_ignored_total",
		Help: "Push-channel events dropped for arriving outside the active scope.",
	})
	m.pushDuplicates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flowsync", Name: "push_events_duplicate_total",
		Help: "Redelivered events absorbed as idempotent no-ops.",
	})
	m.optimisticInserts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flowsync", Name: "optimistic_inserts_total",
		Help: "Provisional records inserted ahead of the network round trip.",
	})
	m.rollbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flowsync", Name: "optimistic_rollbacks_total",
		Help: "Provisional records removed after a failed request.",
	})
	m.saveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "flowsync", Name: "save_duration_seconds",
		Help:    "Latency of document save round trips.",
		Buckets: prometheus.DefBuckets,
	})

	m.registry.MustRegister(
		m.writesIssued, m.writesCoalesced, m.writesCancelled, m.writesFailed,
		m.pushApplied, m.pushIgnored, m.pushDuplicates,
		m.optimisticInserts, m.rollbacks, m.saveDuration,
	)
	return m
}

// Handler exposes the registry for the local facade's /metrics route.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) WriteIssued() {
	if m != nil {
		m.writesIssued.Inc()
	}
}

func (m *Metrics) WriteCoalesced() {
	if m != nil {
		m.writesCoalesced.Inc()
	}
}

func (m *Metrics) WriteCancelled() {
	if m != nil {
		m.writesCancelled.Inc()
	}
}

func (m *Metrics) WriteFailed() {
	if m != nil {
		m.writesFailed.Inc()
	}
}

func (m *Metrics) PushApplied(changeType string) {
	if m != nil {
		m.pushApplied.WithLabelValues(changeType).Inc()
	}
}

func (m *Metrics) PushIgnored() {
	if m != nil {
		m.pushIgnored.Inc()
	}
}

func (m *Metrics) PushDuplicate() {
	if m != nil {
		m.pushDuplicates.Inc()
	}
}

func (m *Metrics) OptimisticInsert() {
	if m != nil {
		m.optimisticInserts.Inc()
	}
}

func (m *Metrics) Rollback() {
	if m != nil {
		m.rollbacks.Inc()
	}
}

func (m *Metrics) ObserveSaveDuration(seconds float64) {
	if m != nil {
		m.saveDuration.Observe(seconds)
	}
}
