package rcuht

import (
	"github.com/yndnr/rcuht-go/internal/lfht"
)

// readState is recycled across the sessions of one context; seq is zero
// while it is idle.
type readState[K comparable, V any] struct {
	ctx *ThreadContext[K, V]
	seq uint64
}

// ReadSession is an open read-side critical section. Entries it finds are
// not released before Close, even if they are removed concurrently.
type ReadSession[K comparable, V any] struct {
	st  *readState[K, V]
	seq uint64
}

func (s ReadSession[K, V]) open() bool {
	return s.st != nil && s.seq != 0 && s.st.seq == s.seq
}

func (s ReadSession[K, V]) table() *Table[K, V] {
	if !s.open() {
		panic(ErrSessionClosed)
	}
	return s.st.ctx.table
}

// Get returns a reference to the value stored under key. The reference is
// valid until the session is closed.
func (s ReadSession[K, V]) Get(key K) (Ref[K, V], bool) {
	t := s.table()
	n := t.store.Lookup(t.hash(key), t.match(key))
	if n == nil {
		return Ref[K, V]{}, false
	}
	return Ref[K, V]{node: n, st: s.st, seq: s.seq}, true
}

// Lookup returns a copy of the value stored under key.
func (s ReadSession[K, V]) Lookup(key K) (V, bool) {
	t := s.table()
	n := t.store.Lookup(t.hash(key), t.match(key))
	if n == nil {
		var zero V
		return zero, false
	}
	return n.Value, true
}

// Contains reports whether key is present.
func (s ReadSession[K, V]) Contains(key K) bool {
	t := s.table()
	return t.store.Lookup(t.hash(key), t.match(key)) != nil
}

// Range calls fn for each entry until fn returns false. Entries added or
// removed concurrently may or may not be visited.
func (s ReadSession[K, V]) Range(fn func(K, V) bool) {
	t := s.table()
	t.store.Range(func(n *lfht.Node[K, V]) bool {
		return fn(n.Key, n.Value)
	})
}

// Close leaves the critical section. Closing twice returns
// ErrSessionClosed.
func (s ReadSession[K, V]) Close() error {
	if !s.open() {
		return ErrSessionClosed
	}
	c := s.st.ctx
	s.st.seq = 0
	c.free = append(c.free, s.st)
	c.reads--
	c.reader.Unlock()
	return nil
}

// Ref is a checked reference to a value found by ReadSession.Get.
type Ref[K comparable, V any] struct {
	node *lfht.Node[K, V]
	st   *readState[K, V]
	seq  uint64
}

// Valid reports whether the session that produced the reference is still
// open.
func (r Ref[K, V]) Valid() bool {
	return r.node != nil && r.st != nil && r.st.seq == r.seq
}

func (r Ref[K, V]) check() {
	if !r.Valid() {
		panic(ErrSessionClosed)
	}
	if r.node.Released() {
		panic(errUseAfterReclaim)
	}
}

// Value returns the referenced value. It panics with ErrSessionClosed once
// the session is closed.
func (r Ref[K, V]) Value() V {
	r.check()
	return r.node.Value
}

// Key returns the referenced entry's key.
func (r Ref[K, V]) Key() K {
	r.check()
	return r.node.Key
}

var errUseAfterReclaim = NewError("RCU-SES-5000", "entry released while referenced")
