package compat

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lixenwraith/applog"
)

// Collector exposes Logger.Stats as Prometheus metrics
type Collector struct {
	logger *applog.Logger

	written        *prometheus.Desc
	dropped        *prometheus.Desc
	rotations      *prometheus.Desc
	deletions      *prometheus.Desc
	internalErrors *prometheus.Desc
	currentSize    *prometheus.Desc
	uptime         *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector; namespace prefixes every metric name
func NewCollector(logger *applog.Logger, namespace string) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "log", name), help, nil, nil)
	}
	return &Collector{
		logger:         logger,
		written:        desc("records_written_total", "Records appended to the log file."),
		dropped:        desc("records_dropped_total", "Records that could not be persisted."),
		rotations:      desc("rotations_total", "Size-triggered file rotations."),
		deletions:      desc("deletions_total", "Rotated files removed by retention."),
		internalErrors: desc("internal_errors_total", "Logger self-diagnostics emitted."),
		currentSize:    desc("active_file_bytes", "Size of the active log file."),
		uptime:         desc("uptime_seconds", "Seconds since the logger was initialized."),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.written
	ch <- c.dropped
	ch <- c.rotations
	ch <- c.deletions
	ch <- c.internalErrors
	ch <- c.currentSize
	ch <- c.uptime
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.logger.Stats()
	ch <- prometheus.MustNewConstMetric(c.written, prometheus.CounterValue, float64(s.RecordsWritten))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.RecordsDropped))
	ch <- prometheus.MustNewConstMetric(c.rotations, prometheus.CounterValue, float64(s.Rotations))
	ch <- prometheus.MustNewConstMetric(c.deletions, prometheus.CounterValue, float64(s.Deletions))
	ch <- prometheus.MustNewConstMetric(c.internalErrors, prometheus.CounterValue, float64(s.InternalErrors))
	ch <- prometheus.MustNewConstMetric(c.currentSize, prometheus.GaugeValue, float64(s.CurrentSize))
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, s.Uptime.Seconds())
}
