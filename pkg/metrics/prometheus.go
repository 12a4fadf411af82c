package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	tickDuration  prometheus.Histogram
	alertsTotal   *prometheus.CounterVec
	regimeState   *prometheus.GaugeVec
	ceiling       prometheus.Gauge
	publishTotal  *prometheus.CounterVec
	streamClients prometheus.Gauge
	errorsTotal   *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		tickDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "riskpulse_tick_duration_seconds",
				Help:    "Duration of one simulation tick",
				Buckets: prometheus.DefBuckets,
			},
		),
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_alerts_total",
				Help: "Total number of alert events emitted",
			},
			[]string{"severity"},
		),
		regimeState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "riskpulse_regime_state",
				Help: "Active regime; the current regime label carries 1, all others 0",
			},
			[]string{"regime"},
		),
		ceiling: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskpulse_exposure_ceiling",
				Help: "Combined equity+crypto exposure ceiling in effect",
			},
		),
		publishTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_publish_total",
				Help: "Snapshot and alert publishes by sink and outcome",
			},
			[]string{"sink", "outcome"},
		),
		streamClients: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskpulse_stream_clients",
				Help: "Connected websocket stream clients",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

var knownRegimes = []string{"RISK_ON", "NEUTRAL", "DEFENSIVE", "CRASH"}

// RecordTick records the duration of one simulation tick.
func (r *Recorder) RecordTick(seconds float64) {
	r.tickDuration.Observe(seconds)
}

// RecordAlert records an emitted alert event.
func (r *Recorder) RecordAlert(severity string) {
	r.alertsTotal.WithLabelValues(severity).Inc()
}

// RecordRegime records the active regime and exposure ceiling.
func (r *Recorder) RecordRegime(regime string, ceiling float64) {
	for _, known := range knownRegimes {
		v := 0.0
		if known == regime {
			v = 1.0
		}
		r.regimeState.WithLabelValues(known).Set(v)
	}
	r.ceiling.Set(ceiling)
}

// RecordPublish records a snapshot or alert publish attempt per sink.
func (r *Recorder) RecordPublish(sink string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.publishTotal.WithLabelValues(sink, outcome).Inc()
}

// SetStreamClients records the number of connected stream clients.
func (r *Recorder) SetStreamClients(n int) {
	r.streamClients.Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
