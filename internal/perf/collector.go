package perf

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes a Tracker's statistics to Prometheus. Values are read
// from a fresh snapshot on every scrape.
type Collector struct {
	tracker *Tracker

	calls      *prometheus.Desc
	minSec     *prometheus.Desc
	maxSec     *prometheus.Desc
	avgSec     *prometheus.Desc
	totalSec   *prometheus.Desc
	throughput *prometheus.Desc
	pending    *prometheus.Desc
}

// NewCollector creates a Collector for tracker.
func NewCollector(tracker *Tracker) *Collector {
	labels := []string{"api"}
	return &Collector{
		tracker: tracker,
		calls: prometheus.NewDesc("perflog_api_calls_total",
			"Completed API calls observed through fn_start/fn_end", labels, nil),
		minSec: prometheus.NewDesc("perflog_api_duration_min_seconds",
			"Fastest observed call", labels, nil),
		maxSec: prometheus.NewDesc("perflog_api_duration_max_seconds",
			"Slowest observed call", labels, nil),
		avgSec: prometheus.NewDesc("perflog_api_duration_avg_seconds",
			"Mean call duration", labels, nil),
		totalSec: prometheus.NewDesc("perflog_api_duration_total_seconds",
			"Sum of call durations", labels, nil),
		throughput: prometheus.NewDesc("perflog_api_throughput_rps",
			"Completed calls per second of process uptime", labels, nil),
		pending: prometheus.NewDesc("perflog_pending_tickets",
			"fn_start events still waiting for fn_end", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.calls
	ch <- c.minSec
	ch <- c.maxSec
	ch <- c.avgSec
	ch <- c.totalSec
	ch <- c.throughput
	ch <- c.pending
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.tracker.Snapshot() {
		ch <- prometheus.MustNewConstMetric(c.calls, prometheus.CounterValue, float64(s.Count), s.API)
		ch <- prometheus.MustNewConstMetric(c.minSec, prometheus.GaugeValue, s.Min.Seconds(), s.API)
		ch <- prometheus.MustNewConstMetric(c.maxSec, prometheus.GaugeValue, s.Max.Seconds(), s.API)
		ch <- prometheus.MustNewConstMetric(c.avgSec, prometheus.GaugeValue, s.Avg.Seconds(), s.API)
		ch <- prometheus.MustNewConstMetric(c.totalSec, prometheus.CounterValue, s.Total.Seconds(), s.API)
		ch <- prometheus.MustNewConstMetric(c.throughput, prometheus.GaugeValue, s.Throughput, s.API)
	}
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(c.tracker.PendingTickets()))
}
