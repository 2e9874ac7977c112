package urcu

import (
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"golang.org/x/sys/cpu"

	"github.com/yndnr/rcuht-go/internal/goid"
	"github.com/yndnr/rcuht-go/internal/telemetry/logger"
	"github.com/yndnr/rcuht-go/internal/telemetry/metric"
)

// DefaultStallTimeout is how long a grace period may wait on readers
// before the stall is logged.
const DefaultStallTimeout = 10 * time.Second

// Domain tracks registered readers and runs grace periods for them.
type Domain struct {
	_  cpu.CacheLinePad
	gp atomic.Uint64
	_  cpu.CacheLinePad

	name         string
	log          logger.Logger
	metrics      *metric.Registry
	collector    *metric.Collector
	stallTimeout time.Duration

	mu      sync.Mutex
	byGID   map[int64]*Reader
	readers atomic.Pointer[[]*Reader]
	closed  bool

	// syncMu serializes grace periods.
	syncMu sync.Mutex

	qmu   sync.Mutex
	queue *queue.Queue
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	stopped atomic.Bool

	gracePeriods atomic.Uint64
	stalls       atomic.Uint64
	retired      atomic.Uint64
	reclaimed    atomic.Uint64
	pending      atomic.Int64
}

// Option configures a Domain.
type Option func(*Domain)

// WithName sets the name used in logs and metric labels.
func WithName(name string) Option {
	return func(d *Domain) {
		d.name = name
	}
}

// WithLogger sets the domain logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Domain) {
		d.log = l
	}
}

// WithMetrics sets the registry that receives grace-period metrics.
func WithMetrics(r *metric.Registry) Option {
	return func(d *Domain) {
		d.metrics = r
	}
}

// WithStallTimeout sets the stall warning threshold. Zero disables it.
func WithStallTimeout(timeout time.Duration) Option {
	return func(d *Domain) {
		d.stallTimeout = timeout
	}
}

var (
	defaultOnce   sync.Once
	defaultDomain *Domain
)

// Default returns the process-wide domain, starting it on first use.
// It lives until the process exits.
func Default() *Domain {
	defaultOnce.Do(func() {
		defaultDomain = NewDomain(WithName("default"), WithMetrics(metric.Global()))
	})
	return defaultDomain
}

// NewDomain creates a domain and starts its reclaimer goroutine.
func NewDomain(opts ...Option) *Domain {
	d := &Domain{
		name:         "domain",
		stallTimeout: DefaultStallTimeout,
		byGID:        make(map[int64]*Reader),
		queue:        queue.New(),
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Component("urcu", "domain", d.name)
	}
	d.gp.Store(1)
	d.readers.Store(&[]*Reader{})

	if d.metrics != nil {
		c := metric.NewCollector(d.name, d)
		if err := d.metrics.Register(c); err == nil {
			d.collector = c
		} else {
			d.log.Debug("domain collector not registered", "error", err)
		}
	}

	go d.reclaimLoop()
	return d
}

// Name returns the domain name.
func (d *Domain) Name() string {
	return d.name
}

// Register returns the calling goroutine's reader, creating it on first
// use. Each call must be balanced by one Unregister.
func (d *Domain) Register() (*Reader, error) {
	gid := goid.Get()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDomainClosed
	}
	if r, ok := d.byGID[gid]; ok {
		r.refs++
		return r, nil
	}

	r := &Reader{gid: gid, refs: 1, domain: d}
	d.byGID[gid] = r
	next := append(slices.Clone(*d.readers.Load()), r)
	d.readers.Store(&next)

	if d.metrics != nil {
		d.metrics.ThreadsRegistered.Inc()
	}
	return r, nil
}

// Retain adds a registration to r without consulting the calling
// goroutine's identity.
func (d *Domain) Retain(r *Reader) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r.refs <= 0 {
		return ErrNotRegistered
	}
	r.refs++
	return nil
}

// Unregister drops one reference to r. The last reference removes the
// reader from the domain; it fails with ErrReaderActive if r is still
// inside a critical section.
func (d *Domain) Unregister(r *Reader) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r.refs <= 0 {
		return ErrNotRegistered
	}
	if r.refs == 1 && r.active.Load() != 0 {
		return ErrReaderActive
	}
	r.refs--
	if r.refs > 0 {
		return nil
	}

	delete(d.byGID, r.gid)
	next := slices.DeleteFunc(slices.Clone(*d.readers.Load()), func(x *Reader) bool {
		return x == r
	})
	d.readers.Store(&next)

	if d.metrics != nil {
		d.metrics.ThreadsRegistered.Dec()
	}
	return nil
}

// Refs returns how many registrations r currently holds.
func (d *Domain) Refs(r *Reader) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return r.refs
}

// Current returns the calling goroutine's reader, or nil.
func (d *Domain) Current() *Reader {
	gid := goid.Get()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byGID[gid]
}

// Synchronize waits until every reader that was inside a critical section
// on entry has left it. Calling it from inside a critical section panics.
func (d *Domain) Synchronize() {
	d.checkQuiescent()
	d.synchronize()
}

func (d *Domain) checkQuiescent() {
	if r := d.Current(); r != nil && r.InCriticalSection() {
		panic(ErrSyncInCriticalSection)
	}
}

func (d *Domain) synchronize() {
	d.syncMu.Lock()
	defer d.syncMu.Unlock()

	start := time.Now()
	target := d.gp.Add(1)
	readers := *d.readers.Load()

	var (
		spins  int
		sleep  = 10 * time.Microsecond
		warned bool
	)
	for _, r := range readers {
		for r.blocks(target) {
			if spins < 64 {
				spins++
				runtime.Gosched()
				continue
			}
			time.Sleep(sleep)
			if sleep < time.Millisecond {
				sleep *= 2
			}
			if !warned && d.stallTimeout > 0 && time.Since(start) > d.stallTimeout {
				warned = true
				d.stalls.Add(1)
				if d.metrics != nil {
					d.metrics.Stalls.Inc()
				}
				d.log.Warn("grace period stalled",
					"gp", target,
					"waited", time.Since(start).String(),
					"blocking_readers", blockingGIDs(readers, target))
			}
		}
	}

	d.gracePeriods.Add(1)
	if d.metrics != nil {
		d.metrics.ObserveGracePeriod(time.Since(start).Seconds())
	}
}

func blockingGIDs(readers []*Reader, target uint64) []int64 {
	var gids []int64
	for _, r := range readers {
		if r.blocks(target) {
			gids = append(gids, r.gid)
		}
	}
	return gids
}

// Close stops the reclaimer after releasing everything still queued.
// The default domain cannot be closed.
func (d *Domain) Close() error {
	if d == defaultDomain {
		return ErrDefaultDomain
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDomainClosed
	}
	d.closed = true
	d.mu.Unlock()

	close(d.stop)
	<-d.done
	d.stopped.Store(true)
	d.drain()

	if d.collector != nil {
		d.metrics.Unregister(d.collector)
	}
	return nil
}

// Stats is a point-in-time view of a domain.
type Stats struct {
	GracePeriod  uint64 `json:"grace_period"`
	GracePeriods uint64 `json:"grace_periods"`
	Stalls       uint64 `json:"stalls"`
	Readers      int    `json:"readers"`
	Retired      uint64 `json:"retired"`
	Reclaimed    uint64 `json:"reclaimed"`
	Pending      int64  `json:"pending"`
}

// Stats returns current domain counters.
func (d *Domain) Stats() Stats {
	return Stats{
		GracePeriod:  d.gp.Load(),
		GracePeriods: d.gracePeriods.Load(),
		Stalls:       d.stalls.Load(),
		Readers:      len(*d.readers.Load()),
		Retired:      d.retired.Load(),
		Reclaimed:    d.reclaimed.Load(),
		Pending:      d.pending.Load(),
	}
}

// MetricSnapshot implements metric.Source.
func (d *Domain) MetricSnapshot() metric.Snapshot {
	return metric.Snapshot{
		GracePeriod: d.gp.Load(),
		Readers:     len(*d.readers.Load()),
		Pending:     int(d.pending.Load()),
	}
}

func (d *Domain) String() string {
	return fmt.Sprintf("urcu.Domain(%s gp=%d)", d.name, d.gp.Load())
}
