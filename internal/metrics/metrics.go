// Package metrics exposes Prometheus collectors for the list-mutation engine.
//
// A nil *Metrics is valid and records nothing, so the engine can call the
// recording methods unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const subsystem = "listq"

// Metrics groups the engine collectors registered against one registry.
type Metrics struct {
	queueDepth   prometheus.Gauge
	admitted     prometheus.Counter
	dropped      *prometheus.CounterVec
	failures     *prometheus.CounterVec
	applied      prometheus.Counter
	published    prometheus.Counter
	superseded   prometheus.Counter
	diffDuration prometheus.Histogram
}

// New registers the engine collectors with reg under the given namespace.
// Registering twice against the same registry panics, as promauto does.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_depth",
			Help:      "Operations waiting in the admission queue after the last decision.",
		}),
		admitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "admitted_total",
			Help:      "Operations accepted into the admission queue.",
		}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dropped_total",
			Help:      "Operations dropped before application, by reason.",
		}, []string{"reason"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "failures_total",
			Help:      "Failure records reported, by kind.",
		}, []string{"kind"}),
		applied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "applied_total",
			Help:      "Operations applied to the authoritative list.",
		}),
		published: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "published_total",
			Help:      "Diff results delivered to the consumer.",
		}),
		superseded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "superseded_total",
			Help:      "Diff requests discarded because a newer snapshot arrived.",
		}),
		diffDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "diff_duration_seconds",
			Help:      "Time spent computing edit scripts.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}

// SetQueueDepth records the post-decision queue depth.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// Admitted counts one accepted operation.
func (m *Metrics) Admitted() {
	if m == nil {
		return
	}
	m.admitted.Inc()
}

// Dropped counts one dropped operation under reason.
func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

// Failed counts one failure record of the given kind.
func (m *Metrics) Failed(kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}

// Applied counts one operation applied by the lane.
func (m *Metrics) Applied() {
	if m == nil {
		return
	}
	m.applied.Inc()
}

// Published counts one delivered diff result.
func (m *Metrics) Published() {
	if m == nil {
		return
	}
	m.published.Inc()
}

// Superseded counts one discarded diff result.
func (m *Metrics) Superseded() {
	if m == nil {
		return
	}
	m.superseded.Inc()
}

// ObserveDiff records how long one diff computation took.
func (m *Metrics) ObserveDiff(d time.Duration) {
	if m == nil {
		return
	}
	m.diffDuration.Observe(d.Seconds())
}
