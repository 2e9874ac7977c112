package urcu

import (
	"sync/atomic"
)

const (
	stateLive uint32 = iota
	stateRetired
	stateReleased
)

// Head is the reclamation bookkeeping embedded in every retirable object.
type Head struct {
	state     atomic.Uint32
	retiredAt atomic.Uint64
}

// Retired reports whether the object was handed to Retire.
func (h *Head) Retired() bool {
	return h.state.Load() != stateLive
}

// Released reports whether the object's grace period has elapsed and its
// Reclaim method has run.
func (h *Head) Released() bool {
	return h.state.Load() == stateReleased
}

// RetiredAt returns the grace-period sequence current when the object was
// retired, or 0.
func (h *Head) RetiredAt() uint64 {
	return h.retiredAt.Load()
}

// Reclaimable is an object whose release is deferred past a grace period.
type Reclaimable interface {
	RCUHead() *Head
	Reclaim()
}

type barrier struct {
	done chan struct{}
}

// Retire queues item for release after a grace period. It never blocks on
// readers. Retiring the same object twice panics.
func (d *Domain) Retire(item Reclaimable) {
	h := item.RCUHead()
	if !h.state.CompareAndSwap(stateLive, stateRetired) {
		panic(ErrDoubleRetire)
	}
	h.retiredAt.Store(d.gp.Load())

	d.retired.Add(1)
	d.pending.Add(1)
	if d.metrics != nil {
		d.metrics.AddRetired(1)
	}

	d.enqueue(item)
}

// Barrier waits until every object retired before the call has been
// released. Calling it from inside a critical section panics.
func (d *Domain) Barrier() {
	d.checkQuiescent()

	b := &barrier{done: make(chan struct{})}
	d.enqueue(b)
	<-b.done
}

// Pending returns the number of retired objects not yet released.
func (d *Domain) Pending() int64 {
	return d.pending.Load()
}

func (d *Domain) enqueue(x any) {
	d.qmu.Lock()
	d.queue.Add(x)
	d.qmu.Unlock()

	if d.stopped.Load() {
		// No reclaimer left; release inline.
		d.drain()
		return
	}
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Domain) reclaimLoop() {
	defer close(d.done)
	for {
		select {
		case <-d.wake:
			d.drain()
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain releases queued items batch by batch, one grace period per batch.
func (d *Domain) drain() {
	for {
		d.qmu.Lock()
		n := d.queue.Length()
		if n == 0 {
			d.qmu.Unlock()
			return
		}
		batch := make([]any, n)
		for i := range batch {
			batch[i] = d.queue.Remove()
		}
		d.qmu.Unlock()

		if hasRetired(batch) {
			d.synchronize()
		}

		var released int
		for _, x := range batch {
			switch item := x.(type) {
			case *barrier:
				close(item.done)
			case Reclaimable:
				d.release(item)
				released++
			}
		}

		d.reclaimed.Add(uint64(released))
		d.pending.Add(-int64(released))
		if d.metrics != nil && released > 0 {
			d.metrics.AddReclaimed(released)
		}
	}
}

func hasRetired(batch []any) bool {
	for _, x := range batch {
		if _, ok := x.(*barrier); !ok {
			return true
		}
	}
	return false
}

func (d *Domain) release(item Reclaimable) {
	item.RCUHead().state.Store(stateReleased)
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("reclaim callback panicked", "panic", r)
			if d.metrics != nil {
				d.metrics.ReclaimPanics.Inc()
			}
		}
	}()
	item.Reclaim()
}
