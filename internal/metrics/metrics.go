// Package metrics provides Prometheus metrics for connection attempts, fallbacks,
// configuration fetches and server probes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Namespace for all idrconnect metrics
	namespace = "idrconnect"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder owns one set of collectors. A nil *Recorder records nothing.
type Recorder struct {
	// ConnectAttempts counts session attempts per transport and result
	ConnectAttempts *prometheus.CounterVec

	// Fallbacks counts retries on the websocket fallback
	Fallbacks prometheus.Counter

	// ConfigFetches counts configuration document retrievals
	ConfigFetches *prometheus.CounterVec

	// ConnectDuration tracks the wall time of a whole Connect call
	ConnectDuration prometheus.Histogram

	// ServerUp reports the last probe result per registered server
	ServerUp *prometheus.GaugeVec

	// ProbeDuration tracks web client probe latency
	ProbeDuration *prometheus.HistogramVec
}

// New creates an unregistered set of collectors.
func New() *Recorder {
	return &Recorder{
		ConnectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connect_attempts_total",
				Help:      "Total number of session attempts",
			},
			[]string{"transport", "result"},
		),
		Fallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallback_total",
				Help:      "Total number of retries on the secure websocket transport",
			},
		),
		ConfigFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_fetch_total",
				Help:      "Total number of connection configuration fetches",
			},
			[]string{"result"},
		),
		ConnectDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "connect_duration_seconds",
				Help:      "Duration of connection establishment in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),
		ServerUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "server_up",
				Help:      "Whether the last probe of a registered server succeeded (1) or not (0)",
			},
			[]string{"server"},
		),
		ProbeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_duration_seconds",
				Help:      "Duration of web client probes in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"server"},
		),
	}
}

// Register creates a Recorder and registers its collectors with reg.
func Register(reg prometheus.Registerer) (*Recorder, error) {
	r := New()
	for _, c := range r.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		r.ConnectAttempts,
		r.Fallbacks,
		r.ConfigFetches,
		r.ConnectDuration,
		r.ServerUp,
		r.ProbeDuration,
	}
}

// RecordAttempt records one session attempt on transport.
func (r *Recorder) RecordAttempt(transport string, err error) {
	if r == nil {
		return
	}
	r.ConnectAttempts.WithLabelValues(transport, result(err)).Inc()
}

// RecordFallback records a retry on the fallback transport.
func (r *Recorder) RecordFallback() {
	if r == nil {
		return
	}
	r.Fallbacks.Inc()
}

// RecordConfigFetch records one configuration fetch.
func (r *Recorder) RecordConfigFetch(err error) {
	if r == nil {
		return
	}
	r.ConfigFetches.WithLabelValues(result(err)).Inc()
}

// ObserveConnect records the duration of a Connect call.
func (r *Recorder) ObserveConnect(d time.Duration) {
	if r == nil {
		return
	}
	r.ConnectDuration.Observe(d.Seconds())
}

// RecordProbe records a registered server probe.
func (r *Recorder) RecordProbe(server string, up bool, d time.Duration) {
	if r == nil {
		return
	}
	value := 0.0
	if up {
		value = 1
	}
	r.ServerUp.WithLabelValues(server).Set(value)
	r.ProbeDuration.WithLabelValues(server).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
