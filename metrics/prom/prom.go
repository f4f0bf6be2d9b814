// Package prom exports collection metrics to Prometheus.
//
// A Collector implements yyy.MetricsCollector. Long-running processes serve
// its registry over HTTP; one-shot runs such as yyy-collect write it to a
// node_exporter textfile with WriteTextfile.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/peerdata/yyy"
)

const namespace = "yyy"

// Collector implements yyy.MetricsCollector on Prometheus metrics.
type Collector struct {
	latency    *prometheus.HistogramVec
	reviews    *prometheus.CounterVec
	entries    prometheus.Counter
	venues     prometheus.Counter
	collisions prometheus.Counter
	skips      *prometheus.CounterVec
	lastRun    *prometheus.GaugeVec
}

var _ yyy.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers its metrics with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of collection, fetch, archive and merge operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_stored_total",
			Help:      "Reviews stored by successful collection runs",
		}, []string{"venue"}),
		entries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_entries_written_total",
			Help:      "Entries appended to vault archives",
		}),
		venues: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "venues_loaded_total",
			Help:      "Venues loaded from vault archives",
		}),
		collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merge_collisions_total",
			Help:      "Submissions and reviews present on both sides of a merge",
		}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Rows dropped during collection",
		}, []string{"reason"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_collect_timestamp_seconds",
			Help:      "Completion time of the last successful collection run",
		}, []string{"venue"}),
	}

	for _, m := range []prometheus.Collector{c.latency, c.reviews, c.entries, c.venues, c.collisions, c.skips, c.lastRun} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordCollect implements yyy.MetricsCollector.
func (c *Collector) RecordCollect(venue string, reviews int, d time.Duration, err error) {
	c.latency.WithLabelValues("collect", status(err)).Observe(d.Seconds())
	if err != nil {
		return
	}
	c.reviews.WithLabelValues(venue).Add(float64(reviews))
	c.lastRun.WithLabelValues(venue).SetToCurrentTime()
}

// RecordFetch implements yyy.MetricsCollector.
func (c *Collector) RecordFetch(op string, d time.Duration, err error) {
	c.latency.WithLabelValues("fetch_"+op, status(err)).Observe(d.Seconds())
}

// RecordArchiveWrite implements yyy.MetricsCollector.
func (c *Collector) RecordArchiveWrite(entries int, d time.Duration, err error) {
	c.latency.WithLabelValues("archive_write", status(err)).Observe(d.Seconds())
	if err == nil {
		c.entries.Add(float64(entries))
	}
}

// RecordArchiveRead implements yyy.MetricsCollector.
func (c *Collector) RecordArchiveRead(venues int, d time.Duration, err error) {
	c.latency.WithLabelValues("archive_read", status(err)).Observe(d.Seconds())
	if err == nil {
		c.venues.Add(float64(venues))
	}
}

// RecordMerge implements yyy.MetricsCollector.
func (c *Collector) RecordMerge(_, collisions int, d time.Duration) {
	c.latency.WithLabelValues("merge", "success").Observe(d.Seconds())
	c.collisions.Add(float64(collisions))
}

// RecordSkip implements yyy.MetricsCollector.
func (c *Collector) RecordSkip(reason string) {
	c.skips.WithLabelValues(reason).Inc()
}

// WriteTextfile writes everything g gathers to path in the text exposition
// format, replacing the file atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
