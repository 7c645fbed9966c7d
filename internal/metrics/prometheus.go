package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "perflog"

var batchDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// PrometheusRecorder implements Recorder on top of Prometheus collectors.
type PrometheusRecorder struct {
	correlationMisses prometheus.Counter
	ticketsDropped    prometheus.Counter
	txClassified      *prometheus.CounterVec
	txSkipped         *prometheus.CounterVec
	txPersisted       *prometheus.CounterVec
	txBatchSize       prometheus.Histogram
	txBatchDuration   prometheus.Histogram
	streamPublished   *prometheus.CounterVec
	streamConsumed    *prometheus.CounterVec
}

// NewPrometheus creates a PrometheusRecorder and registers its collectors
// with reg. Collectors already registered by an earlier recorder are reused.
func NewPrometheus(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		correlationMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "perf",
			Name:      "correlation_misses_total",
			Help:      "fn_end events that matched no pending ticket",
		}),
		ticketsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "perf",
			Name:      "tickets_dropped_total",
			Help:      "Pending tickets discarded by a report",
		}),
		txClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "txstatus",
			Name:      "classified_total",
			Help:      "Submissions classified, by tx type",
		}, []string{"type"}),
		txSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "txstatus",
			Name:      "skipped_total",
			Help:      "Submissions skipped before persistence, by reason",
		}, []string{"reason"}),
		txPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "txstatus",
			Name:      "persisted_total",
			Help:      "Insert attempts, by outcome",
		}, []string{"status"}),
		txBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "txstatus",
			Name:      "batch_size",
			Help:      "Submissions per tx_insert_db batch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		txBatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "txstatus",
			Name:      "batch_duration_seconds",
			Help:      "Time to classify and persist one batch",
			Buckets:   batchDurationBuckets,
		}),
		streamPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "published_total",
			Help:      "Batches published to the Redis stream, by outcome",
		}, []string{"status"}),
		streamConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "consumed_total",
			Help:      "Stream messages consumed, by outcome",
		}, []string{"status"}),
	}

	if err := r.register(reg); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *PrometheusRecorder) register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counters := []*prometheus.Counter{&r.correlationMisses, &r.ticketsDropped}
	for _, c := range counters {
		if err := reg.Register(*c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
			if existing, ok := already.ExistingCollector.(prometheus.Counter); ok {
				*c = existing
			}
		}
	}

	vecs := []**prometheus.CounterVec{&r.txClassified, &r.txSkipped, &r.txPersisted, &r.streamPublished, &r.streamConsumed}
	for _, v := range vecs {
		if err := reg.Register(*v); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				*v = existing
			}
		}
	}

	histograms := []*prometheus.Histogram{&r.txBatchSize, &r.txBatchDuration}
	for _, h := range histograms {
		if err := reg.Register(*h); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
			if existing, ok := already.ExistingCollector.(prometheus.Histogram); ok {
				*h = existing
			}
		}
	}
	return nil
}

// IncCorrelationMiss increments the correlation miss counter.
func (r *PrometheusRecorder) IncCorrelationMiss() {
	r.correlationMisses.Inc()
}

// AddTicketsDropped adds tickets discarded by a report.
func (r *PrometheusRecorder) AddTicketsDropped(n int) {
	if n > 0 {
		r.ticketsDropped.Add(float64(n))
	}
}

// IncTxClassified increments the classified counter.
func (r *PrometheusRecorder) IncTxClassified(txType string) {
	r.txClassified.WithLabelValues(txType).Inc()
}

// IncTxSkipped increments the skipped counter.
func (r *PrometheusRecorder) IncTxSkipped(reason string) {
	r.txSkipped.WithLabelValues(reason).Inc()
}

// IncTxPersisted increments the persisted counter.
func (r *PrometheusRecorder) IncTxPersisted(status string) {
	r.txPersisted.WithLabelValues(status).Inc()
}

// ObserveTxBatchSize records batch size.
func (r *PrometheusRecorder) ObserveTxBatchSize(size int) {
	r.txBatchSize.Observe(float64(size))
}

// ObserveTxBatchDuration records batch duration.
func (r *PrometheusRecorder) ObserveTxBatchDuration(duration time.Duration) {
	r.txBatchDuration.Observe(duration.Seconds())
}

// IncStreamPublished increments the stream publish counter.
func (r *PrometheusRecorder) IncStreamPublished(status string) {
	r.streamPublished.WithLabelValues(status).Inc()
}

// IncStreamConsumed increments the stream consume counter.
func (r *PrometheusRecorder) IncStreamConsumed(status string) {
	r.streamConsumed.WithLabelValues(status).Inc()
}
