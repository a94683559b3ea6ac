package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	refreshes  *prometheus.CounterVec
	synthetic  *prometheus.CounterVec
	lastPrice  *prometheus.GaugeVec
	latency    *prometheus.HistogramVec
	errors     *prometheus.CounterVec
	trades     *prometheus.CounterVec
	rules      *prometheus.CounterVec
	eventsSent *prometheus.CounterVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the recorder on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesense_refresh_total",
				Help: "Quote and series refreshes by kind and result",
			},
			[]string{"kind", "result"},
		),
		synthetic: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesense_synthetic_series_total",
				Help: "Series replaced by a generated fallback",
			},
			[]string{"symbol"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradesense_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradesense_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesense_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		trades: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesense_trades_total",
				Help: "Executed trades by side",
			},
			[]string{"side"},
		),
		rules: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesense_rule_triggers_total",
				Help: "Challenge rule transitions by rule",
			},
			[]string{"rule"},
		),
		eventsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesense_events_published_total",
				Help: "Domain events delivered to a sink",
			},
			[]string{"backend"},
		),
	}
}

func (r *Recorder) RecordRefresh(kind, result string) {
	r.refreshes.WithLabelValues(kind, result).Inc()
}

func (r *Recorder) RecordSyntheticFallback(symbol string) {
	r.synthetic.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordTrade(side string) {
	r.trades.WithLabelValues(side).Inc()
}

func (r *Recorder) RecordRuleTriggered(rule string) {
	r.rules.WithLabelValues(rule).Inc()
}

func (r *Recorder) RecordEventsPublished(backend string, n int) {
	r.eventsSent.WithLabelValues(backend).Add(float64(n))
}

// Nop discards every observation. Used where metrics are optional.
type Nop struct{}

func (Nop) RecordRefresh(string, string)      {}
func (Nop) RecordSyntheticFallback(string)    {}
func (Nop) RecordLastPrice(string, float64)   {}
func (Nop) RecordLatency(string, float64)     {}
func (Nop) RecordError(string)                {}
func (Nop) RecordTrade(string)                {}
func (Nop) RecordRuleTriggered(string)        {}
func (Nop) RecordEventsPublished(string, int) {}
