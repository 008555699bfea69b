// Package metrics exposes the notifier's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stage outcomes
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// StreamErrTxFailed labels log events whose transaction failed on chain
const StreamErrTxFailed = "tx_failed"

// Metrics holds every collector the notifier updates.
// All methods are safe on a nil receiver so components can run uninstrumented.
type Metrics struct {
	registry *prometheus.Registry

	EventsReceived  prometheus.Counter
	EventsMatched   prometheus.Counter
	EventsDuplicate prometheus.Counter
	StreamErrors    *prometheus.CounterVec
	Reconnects      prometheus.Counter

	Runs           *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
	Dispatches     *prometheus.CounterVec
	BreakerState   *prometheus.GaugeVec
	InFlightRuns   prometheus.Gauge
}

// New creates a metrics set on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		EventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifier_log_events_received_total",
			Help: "Log events delivered by the ledger stream",
		}),
		EventsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifier_log_events_matched_total",
			Help: "Log events carrying the pool initialization marker",
		}),
		EventsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifier_log_events_duplicate_total",
			Help: "Matched events dropped because the signature was already seen",
		}),
		StreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_stream_errors_total",
			Help: "Stream level errors by kind",
		}, []string{"kind"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifier_stream_reconnects_total",
			Help: "Websocket reconnect attempts",
		}),

		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_pipeline_runs_total",
			Help: "Pipeline runs by outcome",
		}, []string{"result"}),
		LookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notifier_lookup_duration_seconds",
			Help:    "Duration of each enrichment lookup",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"lookup", "result"}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_dispatches_total",
			Help: "Telegram dispatch attempts by outcome",
		}, []string{"result"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "notifier_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"name"}),
		InFlightRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notifier_pipeline_runs_in_flight",
			Help: "Pipeline runs currently executing",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.EventsReceived,
		m.EventsMatched,
		m.EventsDuplicate,
		m.StreamErrors,
		m.Reconnects,
		m.Runs,
		m.LookupDuration,
		m.Dispatches,
		m.BreakerState,
		m.InFlightRuns,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}


func (m *Metrics) EventReceived() {
	if m != nil {
		m.EventsReceived.Inc()
	}
}

func (m *Metrics) EventMatched() {
	if m != nil {
		m.EventsMatched.Inc()
	}
}

func (m *Metrics) EventDuplicate() {
	if m != nil {
		m.EventsDuplicate.Inc()
	}
}

func (m *Metrics) StreamError(kind string) {
	if m != nil {
		m.StreamErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Reconnect() {
	if m != nil {
		m.Reconnects.Inc()
	}
}

func (m *Metrics) RunFinished(result string) {
	if m != nil {
		m.Runs.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) RunStarted() func() {
	if m == nil {
		return func() {}
	}
	m.InFlightRuns.Inc()
	return m.InFlightRuns.Dec
}

// ObserveLookup records how long a named enrichment lookup took.
func (m *Metrics) ObserveLookup(lookup string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.LookupDuration.WithLabelValues(lookup, result).Observe(time.Since(start).Seconds())
}

func (m *Metrics) Dispatch(result string) {
	if m != nil {
		m.Dispatches.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) SetBreakerState(name string, state float64) {
	if m != nil {
		m.BreakerState.WithLabelValues(name).Set(state)
	}
}
