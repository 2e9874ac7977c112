package rcuht

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/yndnr/rcuht-go/internal/hash"
	"github.com/yndnr/rcuht-go/internal/lfht"
	"github.com/yndnr/rcuht-go/internal/telemetry/logger"
	"github.com/yndnr/rcuht-go/internal/telemetry/metric"
	"github.com/yndnr/rcuht-go/internal/urcu"
)

// Table is a concurrent hash table with lock-free readers and one writer
// at a time.
type Table[K comparable, V any] struct {
	store  *lfht.Table[K, V]
	domain *urcu.Domain
	hash   hash.Func[K]

	writeMu  sync.Mutex
	poisoned atomic.Bool

	mu       sync.Mutex
	contexts int64
	closed   bool

	log        logger.Logger
	metrics    *metric.Registry
	ownerCheck bool
	reclaim    func(K, V)
}

// New creates a table with initBuckets buckets.
//
// initBuckets and minAllocBuckets must be nonzero powers of two; maxBuckets
// must be a power of two, or zero for no explicit bound. With autoResize the
// bucket array doubles as entries outgrow it, up to maxBuckets.
func New[K comparable, V any](initBuckets, minAllocBuckets, maxBuckets uint64, autoResize bool, opts ...Option) (*Table[K, V], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	t := &Table[K, V]{
		domain:     o.domain,
		log:        o.log,
		metrics:    o.metrics,
		ownerCheck: o.ownerCheck,
	}
	if t.domain == nil {
		t.domain = urcu.Default()
	}
	if t.log == nil {
		t.log = logger.Component("rcuht")
	}
	if t.metrics == nil {
		t.metrics = metric.Global()
	}

	switch fn := o.hasher.(type) {
	case nil:
		seed := hash.DefaultSeed
		if o.seeded {
			seed = o.seed
		}
		t.hash = hash.For[K](seed)
	case func(K) uint64:
		t.hash = fn
	default:
		return nil, ErrInvalidParameters.WithDetails(fmt.Sprintf("hasher %T does not take the table key type", o.hasher))
	}

	switch fn := o.reclaim.(type) {
	case nil:
	case func(K, V):
		t.reclaim = fn
	default:
		return nil, ErrInvalidParameters.WithDetails(fmt.Sprintf("reclaim func %T does not match the table types", o.reclaim))
	}

	store, err := lfht.New(lfht.Config[K, V]{
		InitSize:   initBuckets,
		MinAlloc:   minAllocBuckets,
		MaxSize:    maxBuckets,
		AutoResize: autoResize,
		Release:    t.release,
		OnResize:   t.resized,
	})
	if err != nil {
		return nil, ErrInvalidParameters.WithDetails(err.Error()).WithCause(err)
	}
	t.store = store

	t.metrics.TablesActive.Inc()
	t.log.Debug("table created",
		"buckets", store.Size(),
		"max_buckets", store.MaxSize(),
		"auto_resize", autoResize,
		"domain", t.domain.Name())

	return t, nil
}

func (t *Table[K, V]) release(n *lfht.Node[K, V]) {
	if t.reclaim != nil {
		t.reclaim(n.Key, n.Value)
	}
}

func (t *Table[K, V]) resized(from, to uint64) {
	t.metrics.Resizes.Inc()
	t.log.Debug("table resized", "from", from, "to", to)
}

func (t *Table[K, V]) match(key K) func(*lfht.Node[K, V]) bool {
	return func(n *lfht.Node[K, V]) bool {
		return n.Key == key
	}
}

// Thread returns a context bound to the calling goroutine. The first
// context on a goroutine registers it as a reader; later ones share that
// registration. Every context must be closed. Thread panics with
// ErrTableClosed on a closed table.
func (t *Table[K, V]) Thread() *ThreadContext[K, V] {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		panic(ErrTableClosed)
	}
	r, err := t.domain.Register()
	if err != nil {
		panic(ErrTableClosed.WithCause(err))
	}
	t.contexts++

	return &ThreadContext[K, V]{
		table:  t,
		reader: r,
		refs:   1,
		gid:    r.GID(),
	}
}

func (t *Table[K, V]) contextClosed() {
	t.mu.Lock()
	t.contexts--
	t.mu.Unlock()
}

// Close removes every remaining entry, waits for all retired entries to be
// released and frees the store. It fails with ErrTableBusy while thread
// contexts are open. Close must not be called from inside a read session.
func (t *Table[K, V]) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTableClosed
	}
	if t.contexts > 0 {
		n := t.contexts
		t.mu.Unlock()
		return ErrTableBusy.WithDetails(fmt.Sprintf("%d open", n))
	}
	t.closed = true
	t.mu.Unlock()

	r, err := t.domain.Register()
	if err == nil {
		r.Lock()
		var nodes []*lfht.Node[K, V]
		t.store.Range(func(n *lfht.Node[K, V]) bool {
			nodes = append(nodes, n)
			return true
		})
		for _, n := range nodes {
			if t.store.Del(n) == lfht.DelOK {
				t.domain.Retire(n)
			}
		}
		r.Unlock()
		_ = t.domain.Unregister(r)
	}

	t.domain.Barrier()
	if err := t.store.Destroy(); err != nil {
		return fmt.Errorf("destroy store: %w", err)
	}

	t.metrics.TablesActive.Dec()
	t.log.Debug("table closed")
	return nil
}

// Len returns the number of entries.
func (t *Table[K, V]) Len() int {
	return int(t.store.Count())
}

// Buckets returns the current bucket count.
func (t *Table[K, V]) Buckets() uint64 {
	return t.store.Size()
}

// Barrier waits until every entry removed or replaced so far has been
// released. It panics if called from inside a read session.
func (t *Table[K, V]) Barrier() {
	t.domain.Barrier()
}

// Poisoned reports whether a write session panicked mid-mutation.
func (t *Table[K, V]) Poisoned() bool {
	return t.poisoned.Load()
}

func (t *Table[K, V]) poison(reason string) {
	if t.poisoned.CompareAndSwap(false, true) {
		t.metrics.Poisoned.Inc()
		t.log.Error("writer lock poisoned", "reason", reason)
	}
}

// Stats is a point-in-time view of a table.
type Stats struct {
	Entries  int        `json:"entries" yaml:"entries"`
	Buckets  uint64     `json:"buckets" yaml:"buckets"`
	Contexts int64      `json:"contexts" yaml:"contexts"`
	Poisoned bool       `json:"poisoned" yaml:"poisoned"`
	Domain   urcu.Stats `json:"domain" yaml:"domain"`
}

// Stats returns current table and grace-period counters.
func (t *Table[K, V]) Stats() Stats {
	t.mu.Lock()
	contexts := t.contexts
	t.mu.Unlock()

	return Stats{
		Entries:  t.Len(),
		Buckets:  t.Buckets(),
		Contexts: contexts,
		Poisoned: t.Poisoned(),
		Domain:   t.domain.Stats(),
	}
}
