package lfht

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"
)

const (
	// MaxInitBuckets is the largest bucket array allocated eagerly.
	MaxInitBuckets = 1 << 24

	// DefaultMaxBuckets bounds growth when no maximum is configured.
	DefaultMaxBuckets = 1 << 30

	// loadFactor is the entries-per-bucket ratio that triggers growth.
	loadFactor = 2
)

// Del results.
const (
	DelOK       = 0
	DelNotFound = -2  // node already removed
	DelInvalid  = -22 // nil, dummy or foreign node
)

var (
	// ErrInvalidParameters is returned by New for rejected sizing.
	ErrInvalidParameters = errors.New("lfht: invalid parameters")

	// ErrNotEmpty is returned by Destroy while entries remain.
	ErrNotEmpty = errors.New("lfht: table not empty")
)

// Config sizes a table. InitSize and MinAlloc must be nonzero powers of two;
// MaxSize must be a power of two or zero for the default bound.
type Config[K comparable, V any] struct {
	InitSize   uint64
	MinAlloc   uint64
	MaxSize    uint64
	AutoResize bool

	// Release is called from Node.Reclaim before the payload is cleared.
	Release func(*Node[K, V])

	// OnResize is called after the bucket array grows.
	OnResize func(from, to uint64)
}

// Table is a lock-free split-ordered hash table.
type Table[K comparable, V any] struct {
	buckets atomic.Pointer[[]*Node[K, V]]
	count   atomic.Int64

	minAlloc   uint64
	maxSize    uint64
	autoResize bool
	release    func(*Node[K, V])
	onResize   func(from, to uint64)

	resizeMu  sync.Mutex
	destroyed atomic.Bool
}

func isPow2(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// New validates and normalizes cfg, then allocates the bucket array.
func New[K comparable, V any](cfg Config[K, V]) (*Table[K, V], error) {
	size, minAlloc, maxSize := cfg.InitSize, cfg.MinAlloc, cfg.MaxSize

	switch {
	case !isPow2(size):
		return nil, fmt.Errorf("%w: init size %d is not a nonzero power of two", ErrInvalidParameters, size)
	case !isPow2(minAlloc):
		return nil, fmt.Errorf("%w: min alloc %d is not a nonzero power of two", ErrInvalidParameters, minAlloc)
	case maxSize != 0 && !isPow2(maxSize):
		return nil, fmt.Errorf("%w: max size %d is not a power of two", ErrInvalidParameters, maxSize)
	}

	if maxSize == 0 {
		maxSize = DefaultMaxBuckets
	}
	maxSize = max(maxSize, minAlloc)
	size = min(size, maxSize)

	alloc := max(size, minAlloc)
	if alloc > MaxInitBuckets {
		return nil, fmt.Errorf("%w: cannot allocate %d buckets (limit %d)", ErrInvalidParameters, alloc, MaxInitBuckets)
	}

	t := &Table[K, V]{
		minAlloc:   minAlloc,
		maxSize:    maxSize,
		autoResize: cfg.AutoResize,
		release:    cfg.Release,
		onResize:   cfg.OnResize,
	}

	// Dummies are generated in list order: the i-th dummy in the list is
	// bucket i reversed over log2(size) bits.
	bs := make([]*Node[K, V], size, alloc)
	shift := 64 - bits.TrailingZeros64(size)
	var prev *Node[K, V]
	for i := uint64(0); i < size; i++ {
		b := bits.Reverse64(i) >> shift
		d := &Node[K, V]{soKey: dummyKey(b), hash: b, dummy: true, tbl: t}
		d.next.Store(&link[K, V]{})
		if prev != nil {
			prev.next.Store(&link[K, V]{node: d})
		}
		bs[b] = d
		prev = d
	}
	t.buckets.Store(&bs)

	return t, nil
}

func regularKey(hash uint64) uint64 {
	return bits.Reverse64(hash | 1<<63)
}

func dummyKey(bucket uint64) uint64 {
	return bits.Reverse64(bucket)
}

func (t *Table[K, V]) bucket(hash uint64) *Node[K, V] {
	bs := *t.buckets.Load()
	return bs[hash&uint64(len(bs)-1)]
}

// Count returns the number of live entries.
func (t *Table[K, V]) Count() int64 {
	return t.count.Load()
}

// Size returns the current number of buckets.
func (t *Table[K, V]) Size() uint64 {
	return uint64(len(*t.buckets.Load()))
}

// MaxSize returns the normalized growth bound.
func (t *Table[K, V]) MaxSize() uint64 {
	return t.maxSize
}

// Lookup returns the live node with the given hash for which match reports
// true, or nil. It must run inside a read-side critical section.
func (t *Table[K, V]) Lookup(hash uint64, match func(*Node[K, V]) bool) *Node[K, V] {
	so := regularKey(hash)
	for cur := t.bucket(hash).next.Load().node; cur != nil; {
		if cur.soKey > so {
			return nil
		}
		cl := cur.next.Load()
		if !cl.removed && cur.soKey == so && !cur.dummy && cur.hash == hash && match(cur) {
			return cur
		}
		cur = cl.node
	}
	return nil
}

// search walks from start to the first live node whose split-order key
// exceeds so, or to the first live node with key so accepted by match.
// Removed nodes met on the way are unlinked. The returned link is pred's
// next link as observed, for use as a CAS expectation.
func (t *Table[K, V]) search(start *Node[K, V], so uint64, match func(*Node[K, V]) bool) (pred *Node[K, V], pl *link[K, V], cur *Node[K, V], found bool) {
retry:
	for {
		pred = start
		pl = pred.next.Load()
		for {
			cur = pl.node
			if cur == nil {
				return pred, pl, nil, false
			}
			cl := cur.next.Load()
			if cl.removed {
				nl := &link[K, V]{node: cl.node}
				if !pred.next.CompareAndSwap(pl, nl) {
					continue retry
				}
				pl = nl
				continue
			}
			if cur.soKey > so {
				return pred, pl, cur, false
			}
			if cur.soKey == so && match != nil && match(cur) {
				return pred, pl, cur, true
			}
			pred, pl = cur, cl
		}
	}
}

// AddReplace links n under hash. If a live node accepted by match exists it
// is atomically replaced by n and returned; otherwise n is inserted and nil
// is returned. It must run inside a read-side critical section.
func (t *Table[K, V]) AddReplace(hash uint64, match func(*Node[K, V]) bool, n *Node[K, V]) *Node[K, V] {
	n.hash = hash
	n.soKey = regularKey(hash)
	n.tbl = t

	same := func(c *Node[K, V]) bool {
		return !c.dummy && c.hash == hash && match(c)
	}

	for {
		pred, pl, cur, found := t.search(t.bucket(hash), n.soKey, same)
		if found {
			cl := cur.next.Load()
			if cl.removed {
				continue
			}
			n.next.Store(&link[K, V]{node: cl.node})
			if !cur.next.CompareAndSwap(cl, &link[K, V]{node: n, removed: true}) {
				continue
			}
			// Best effort; a later search unlinks cur otherwise.
			pred.next.CompareAndSwap(pl, &link[K, V]{node: n})
			return cur
		}

		n.next.Store(&link[K, V]{node: cur})
		if pred.next.CompareAndSwap(pl, &link[K, V]{node: n}) {
			c := t.count.Add(1)
			if t.autoResize {
				t.maybeGrow(c)
			}
			return nil
		}
	}
}

// Del logically removes n and unlinks it from the list. It returns DelOK,
// DelNotFound when n was already removed or replaced, or DelInvalid.
// It must run inside a read-side critical section.
func (t *Table[K, V]) Del(n *Node[K, V]) int {
	if n == nil || n.dummy || n.tbl != t {
		return DelInvalid
	}
	for {
		l := n.next.Load()
		if l == nil {
			return DelInvalid
		}
		if l.removed {
			return DelNotFound
		}
		if n.next.CompareAndSwap(l, &link[K, V]{node: l.node, removed: true}) {
			break
		}
	}
	t.count.Add(-1)
	t.search(t.bucket(n.hash), n.soKey, nil)
	return DelOK
}

// Range calls fn for every live node in list order until fn returns false.
// It must run inside a read-side critical section.
func (t *Table[K, V]) Range(fn func(*Node[K, V]) bool) {
	bs := *t.buckets.Load()
	for cur := bs[0]; cur != nil; {
		cl := cur.next.Load()
		if !cur.dummy && !cl.removed {
			if !fn(cur) {
				return
			}
		}
		cur = cl.node
	}
}

func (t *Table[K, V]) maybeGrow(count int64) {
	size := t.Size()
	if uint64(count) <= loadFactor*size || size >= t.maxSize {
		return
	}
	if !t.resizeMu.TryLock() {
		return
	}
	defer t.resizeMu.Unlock()
	t.grow()
}

// grow doubles the bucket array. Callers hold resizeMu.
func (t *Table[K, V]) grow() {
	old := *t.buckets.Load()
	s := uint64(len(old))
	if s >= t.maxSize {
		return
	}

	// Readers of old never index past len(old), so spare capacity is
	// reused in place.
	var bs []*Node[K, V]
	if uint64(cap(old)) >= 2*s {
		bs = old[:2*s]
	} else {
		bs = make([]*Node[K, V], 2*s)
		copy(bs, old)
	}

	for b := s; b < 2*s; b++ {
		bs[b] = t.insertDummy(bs[b-s], b)
	}
	t.buckets.Store(&bs)

	if t.onResize != nil {
		t.onResize(s, 2*s)
	}
}

func (t *Table[K, V]) insertDummy(parent *Node[K, V], b uint64) *Node[K, V] {
	d := &Node[K, V]{soKey: dummyKey(b), hash: b, dummy: true, tbl: t}
	for {
		pred, pl, cur, _ := t.search(parent, d.soKey, nil)
		d.next.Store(&link[K, V]{node: cur})
		if pred.next.CompareAndSwap(pl, &link[K, V]{node: d}) {
			return d
		}
	}
}

// Destroy releases the bucket array. It fails with ErrNotEmpty while
// entries remain.
func (t *Table[K, V]) Destroy() error {
	if t.count.Load() != 0 {
		return ErrNotEmpty
	}
	if !t.destroyed.CompareAndSwap(false, true) {
		return nil
	}
	bs := []*Node[K, V]{{dummy: true, tbl: t}}
	bs[0].next.Store(&link[K, V]{})
	t.buckets.Store(&bs)
	return nil
}
