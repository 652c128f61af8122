package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus instruments of the dialogue core. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Turns          *prometheus.CounterVec
	Intents        *prometheus.CounterVec
	Fallbacks      *prometheus.CounterVec
	FlowEvents     *prometheus.CounterVec
	TurnLatency    prometheus.Histogram
	ModelReloads   *prometheus.CounterVec
	ModelGenSeq    prometheus.Gauge
	TrainingTimeMs prometheus.Histogram

	gatherer prometheus.Gatherer
}

// NewMetrics registers the instruments on a private registry so several instances can
// coexist, e.g. in tests.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := newMetrics(namespace, reg)
	m.gatherer = reg
	return m
}

func newMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Dialogue turns by routed input kind.",
		}, []string{"route"}),
		Intents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Accepted classifier labels.",
		}, []string{"intent"}),
		Fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Fallback replies by reason.",
		}, []string{"reason"}),
		FlowEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_events_total",
			Help:      "Flow engine events by flow and event.",
		}, []string{"flow", "event"}),
		TurnLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "Time to handle one turn in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
		ModelReloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_reloads_total",
			Help:      "Classifier reloads by result.",
		}, []string{"result"}),
		ModelGenSeq: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_generation",
			Help:      "Sequence number of the active classifier generation.",
		}),
		TrainingTimeMs: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_ms",
			Help:      "Classifier training time in milliseconds.",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}
}

func (m *Metrics) ObserveTurn(route string, d time.Duration) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(route).Inc()
	m.TurnLatency.Observe(float64(d.Microseconds()) / 1000)
}

func (m *Metrics) ObserveIntent(label string) {
	if m == nil || label == "" {
		return
	}
	m.Intents.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveFallback(reason string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveFlow(flow, event string) {
	if m == nil || flow == "" || event == "" {
		return
	}
	m.FlowEvents.WithLabelValues(flow, event).Inc()
}

func (m *Metrics) ObserveReload(seq uint64, d time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ModelReloads.WithLabelValues("error").Inc()
		return
	}
	m.ModelReloads.WithLabelValues("ok").Inc()
	m.ModelGenSeq.Set(float64(seq))
	m.TrainingTimeMs.Observe(float64(d.Milliseconds()))
}

// Handler serves the metrics of this instance.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
