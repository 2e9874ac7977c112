package lfht

import (
	"sync/atomic"

	"github.com/yndnr/rcuht-go/internal/urcu"
)

type link[K comparable, V any] struct {
	node    *Node[K, V]
	removed bool
}

// Node is one table entry. Key and Value must not be written after the node
// has been added.
type Node[K comparable, V any] struct {
	urcu.Head

	Key   K
	Value V

	next  atomic.Pointer[link[K, V]]
	soKey uint64
	hash  uint64
	dummy bool
	tbl   *Table[K, V]
}

// NewNode allocates an unlinked node.
func NewNode[K comparable, V any](key K, value V) *Node[K, V] {
	return &Node[K, V]{Key: key, Value: value}
}

// Hash returns the hash the node was added under.
func (n *Node[K, V]) Hash() uint64 {
	return n.hash
}

// Removed reports whether the node has been logically deleted or replaced.
func (n *Node[K, V]) Removed() bool {
	l := n.next.Load()
	return l != nil && l.removed
}

// RCUHead implements urcu.Reclaimable.
func (n *Node[K, V]) RCUHead() *urcu.Head {
	return &n.Head
}

// Reclaim implements urcu.Reclaimable. It runs the table's release hook and
// clears the payload; the link fields are left intact for lookups that are
// still walking past the node.
func (n *Node[K, V]) Reclaim() {
	if n.tbl != nil && n.tbl.release != nil {
		n.tbl.release(n)
	}
	var (
		key   K
		value V
	)
	n.Key = key
	n.Value = value
}
