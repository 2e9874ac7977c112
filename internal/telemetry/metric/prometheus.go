// Package metric provides Prometheus metrics for rcuht.
package metric

import (
	"io"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

const namespace = "rcuht"

// Removal results used as the "result" label of rcuht_removals_total.
const (
	RemovalOK       = "ok"
	RemovalNotFound = "not_found"
	RemovalFailed   = "failed"
)

// Registry holds all table and grace-period metrics on a private
// Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	// Table metrics
	TablesActive      prometheus.Gauge
	ThreadsRegistered prometheus.Gauge
	Inserts           prometheus.Counter
	Replacements      prometheus.Counter
	Removals          *prometheus.CounterVec
	WriteLockWait     prometheus.Histogram
	Poisoned          prometheus.Counter
	Resizes           prometheus.Counter

	// Grace-period metrics
	GracePeriods        prometheus.Counter
	GracePeriodDuration prometheus.Histogram
	Stalls              prometheus.Counter
	Retired             prometheus.Counter
	Reclaimed           prometheus.Counter
	PendingReclaim      prometheus.Gauge
	ReclaimPanics       prometheus.Counter
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry, created on first use.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// NewRegistry creates a registry with all rcuht metrics plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		TablesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tables_active",
			Help:      "Number of open tables.",
		}),
		ThreadsRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "threads_registered",
			Help:      "Number of goroutines registered as readers.",
		}),
		Inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inserts_total",
			Help:      "Entries added under a previously absent key.",
		}),
		Replacements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replacements_total",
			Help:      "Entries that displaced an entry with an equal key.",
		}),
		Removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removals_total",
			Help:      "Remove calls by result.",
		}, []string{"result"}),
		WriteLockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "write_lock_wait_seconds",
			Help:      "Time spent waiting for the writer lock.",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 12),
		}),
		Poisoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_poisoned_total",
			Help:      "Tables whose writer lock was poisoned by a panic.",
		}),
		Resizes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resizes_total",
			Help:      "Bucket table growths.",
		}),
		GracePeriods: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grace_periods_total",
			Help:      "Completed grace periods.",
		}),
		GracePeriodDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grace_period_duration_seconds",
			Help:      "Time to complete one grace period.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		Stalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grace_period_stalls_total",
			Help:      "Grace periods that exceeded the stall timeout.",
		}),
		Retired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_retired_total",
			Help:      "Nodes handed to the reclaimer.",
		}),
		Reclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_reclaimed_total",
			Help:      "Nodes released after a grace period.",
		}),
		PendingReclaim: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes_pending_reclaim",
			Help:      "Nodes retired but not yet released.",
		}),
		ReclaimPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reclaim_panics_total",
			Help:      "Reclaim callbacks that panicked.",
		}),
	}

	reg.MustRegister(
		r.TablesActive,
		r.ThreadsRegistered,
		r.Inserts,
		r.Replacements,
		r.Removals,
		r.WriteLockWait,
		r.Poisoned,
		r.Resizes,
		r.GracePeriods,
		r.GracePeriodDuration,
		r.Stalls,
		r.Retired,
		r.Reclaimed,
		r.PendingReclaim,
		r.ReclaimPanics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Register adds an extra collector, such as one built with NewCollector.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Unregister removes a collector added with Register.
func (r *Registry) Unregister(c prometheus.Collector) bool {
	return r.registry.Unregister(c)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteText writes every metric family in the Prometheus text format.
func (r *Registry) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// RecordRemoval counts one Remove call with the given result.
func (r *Registry) RecordRemoval(result string) {
	r.Removals.WithLabelValues(result).Inc()
}

// ObserveGracePeriod records one completed grace period.
func (r *Registry) ObserveGracePeriod(seconds float64) {
	r.GracePeriods.Inc()
	r.GracePeriodDuration.Observe(seconds)
}

// AddRetired records n nodes entering the reclaim queue.
func (r *Registry) AddRetired(n int) {
	r.Retired.Add(float64(n))
	r.PendingReclaim.Add(float64(n))
}

// AddReclaimed records n nodes released by the reclaimer.
func (r *Registry) AddReclaimed(n int) {
	r.Reclaimed.Add(float64(n))
	r.PendingReclaim.Sub(float64(n))
}
