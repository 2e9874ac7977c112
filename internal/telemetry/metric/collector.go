package metric

import "github.com/prometheus/client_golang/prometheus"

// Snapshot is a point-in-time view of a grace-period domain.
type Snapshot struct {
	GracePeriod uint64
	Readers     int
	Pending     int
}

// Source reports the live state of a grace-period domain.
type Source interface {
	MetricSnapshot() Snapshot
}

// Collector exposes a Source as gauges that are read at scrape time.
type Collector struct {
	src     Source
	gp      *prometheus.Desc
	readers *prometheus.Desc
	pending *prometheus.Desc
}

// NewCollector creates a collector for one named domain.
func NewCollector(domain string, src Source) *Collector {
	labels := prometheus.Labels{"domain": domain}
	return &Collector{
		src: src,
		gp: prometheus.NewDesc(namespace+"_domain_grace_period",
			"Current grace-period sequence number.", nil, labels),
		readers: prometheus.NewDesc(namespace+"_domain_readers",
			"Registered reader slots.", nil, labels),
		pending: prometheus.NewDesc(namespace+"_domain_pending",
			"Retired items waiting for a grace period.", nil, labels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.gp
	ch <- c.readers
	ch <- c.pending
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.MetricSnapshot()
	ch <- prometheus.MustNewConstMetric(c.gp, prometheus.GaugeValue, float64(s.GracePeriod))
	ch <- prometheus.MustNewConstMetric(c.readers, prometheus.GaugeValue, float64(s.Readers))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(s.Pending))
}
