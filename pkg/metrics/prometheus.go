package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	updatesTotal      *prometheus.CounterVec
	updateDuration    *prometheus.HistogramVec
	historyLength     *prometheus.GaugeVec
	lastValue         *prometheus.GaugeVec
	sourceSkips       *prometheus.CounterVec
	constructionSkips *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		updatesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simulator_updates_total",
				Help: "Total number of update cycles per object",
			},
			[]string{"object", "type"},
		),
		updateDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "simulator_update_duration_seconds",
				Help:    "Duration of one update cycle in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		historyLength: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "simulator_history_length",
				Help: "Number of points currently held in an object's history",
			},
			[]string{"object"},
		),
		lastValue: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "simulator_last_value",
				Help: "Last recorded scalar value for an object",
			},
			[]string{"object"},
		),
		sourceSkips: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simulator_source_skips_total",
				Help: "Aggregate sources skipped during update cycles",
			},
			[]string{"aggregate", "reason"},
		),
		constructionSkips: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simulator_construction_skips_total",
				Help: "Objects skipped at registry construction",
			},
			[]string{"reason"},
		),
	}
}

// RecordUpdate records one completed update cycle and its duration.
func (r *Recorder) RecordUpdate(object, dataType string, seconds float64) {
	r.updatesTotal.WithLabelValues(object, dataType).Inc()
	r.updateDuration.WithLabelValues(dataType).Observe(seconds)
}

// RecordLastValue records the latest scalar value for an object.
func (r *Recorder) RecordLastValue(object string, value float64) {
	r.lastValue.WithLabelValues(object).Set(value)
}

// RecordHistoryLength records an object's current history length.
func (r *Recorder) RecordHistoryLength(object string, length int) {
	r.historyLength.WithLabelValues(object).Set(float64(length))
}

// RecordSourceSkip records an aggregate source skipped for one cycle.
func (r *Recorder) RecordSourceSkip(aggregate, reason string) {
	r.sourceSkips.WithLabelValues(aggregate, reason).Inc()
}

// RecordConstructionSkip records an object dropped at construction.
func (r *Recorder) RecordConstructionSkip(reason string) {
	r.constructionSkips.WithLabelValues(reason).Inc()
}
