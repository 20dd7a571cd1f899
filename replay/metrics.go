package replay

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are shared by every session of a process. A nil *Metrics records
// nothing.
type Metrics struct {
	ticks        prometheus.Counter
	signals      *prometheus.CounterVec
	positions    *prometheus.CounterVec
	loads        *prometheus.CounterVec
	loadDuration prometheus.Histogram
	sinkErrors   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tradereplay",
			Name:      "bars_played_total",
			Help:      "Bars played across all sessions",
		}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradereplay",
			Name:      "signals_total",
			Help:      "Signals dispatched by type",
		}, []string{"type"}),
		positions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradereplay",
			Name:      "ledger_events_total",
			Help:      "Ledger outcomes of signal bars",
		}, []string{"action"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradereplay",
			Name:      "feed_loads_total",
			Help:      "Feed loads by result",
		}, []string{"result"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tradereplay",
			Name:      "feed_load_seconds",
			Help:      "Feed load latency",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradereplay",
			Name:      "notification_sink_errors_total",
			Help:      "Failed notification sink calls",
		}, []string{"sink"}),
	}
	reg.MustRegister(m.ticks, m.signals, m.positions, m.loads, m.loadDuration, m.sinkErrors)
	return m
}

func (m *Metrics) tick() {
	if m != nil {
		m.ticks.Inc()
	}
}

func (m *Metrics) signal(typ string) {
	if m != nil {
		m.signals.WithLabelValues(typ).Inc()
	}
}

func (m *Metrics) ledger(action string) {
	if m != nil {
		m.positions.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) load(ok bool, seconds float64) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.loads.WithLabelValues(result).Inc()
	m.loadDuration.Observe(seconds)
}

// SinkError counts a failed notification sink call. It matches
// notify.WithSinkErrorHook.
func (m *Metrics) SinkError(sink string) {
	if m != nil {
		m.sinkErrors.WithLabelValues(sink).Inc()
	}
}
