package urcu

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Reader is one goroutine's registration with a Domain.
//
// A Reader must only be locked and unlocked by the goroutine that
// registered it.
type Reader struct {
	_ cpu.CacheLinePad
	// active is 0 when quiescent, otherwise the grace-period sequence
	// observed on entry to the outermost critical section.
	active atomic.Uint64
	_      cpu.CacheLinePad

	nesting int
	gid     int64
	refs    int
	domain  *Domain
}

// Lock enters a read-side critical section. Calls nest.
func (r *Reader) Lock() {
	if r.nesting == 0 {
		r.active.Store(r.domain.gp.Load())
	}
	r.nesting++
}

// Unlock leaves a read-side critical section.
func (r *Reader) Unlock() {
	if r.nesting == 0 {
		panic(ErrUnbalancedUnlock)
	}
	r.nesting--
	if r.nesting == 0 {
		r.active.Store(0)
	}
}

// InCriticalSection reports whether the owning goroutine holds the reader
// locked.
func (r *Reader) InCriticalSection() bool {
	return r.nesting > 0
}

// Nesting returns the current critical-section depth.
func (r *Reader) Nesting() int {
	return r.nesting
}

// GID returns the ID of the goroutine that registered the reader.
func (r *Reader) GID() int64 {
	return r.gid
}

// Domain returns the domain the reader is registered with.
func (r *Reader) Domain() *Domain {
	return r.domain
}

// blocks reports whether the reader holds back the grace period target.
func (r *Reader) blocks(target uint64) bool {
	a := r.active.Load()
	return a != 0 && a < target
}
