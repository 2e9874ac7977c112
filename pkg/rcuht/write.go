package rcuht

import (
	"github.com/yndnr/rcuht-go/internal/lfht"
	"github.com/yndnr/rcuht-go/internal/telemetry/metric"
)

// WriteSession holds a table's writer lock. At most one is open per table.
type WriteSession[K comparable, V any] struct {
	ctx   *ThreadContext[K, V]
	table *Table[K, V]

	closed bool
	// mutating is set while a store mutation is in flight; Close finding
	// it set means the mutation panicked.
	mutating bool
}

func (w *WriteSession[K, V]) begin() {
	if w.closed {
		panic(ErrSessionClosed)
	}
	w.ctx.reader.Lock()
	w.mutating = true
}

func (w *WriteSession[K, V]) end() {
	w.mutating = false
	w.ctx.reader.Unlock()
}

// InsertOrReplace stores value under key. An entry it displaces is
// released after a grace period.
func (w *WriteSession[K, V]) InsertOrReplace(key K, value V) {
	t := w.table
	n := lfht.NewNode(key, value)

	w.begin()
	old := t.store.AddReplace(t.hash(key), t.match(key), n)
	w.end()

	if old != nil {
		t.domain.Retire(old)
		t.metrics.Replacements.Inc()
		return
	}
	t.metrics.Inserts.Inc()
}

// Remove deletes the entry stored under key. It returns ErrNotFound if
// there is none and a *DeleteError if the store refuses the unlink; in
// that case the entry is left in place.
func (w *WriteSession[K, V]) Remove(key K) error {
	t := w.table

	w.begin()
	n := t.store.Lookup(t.hash(key), t.match(key))
	if n == nil {
		w.end()
		t.metrics.RecordRemoval(metric.RemovalNotFound)
		return ErrNotFound
	}
	code := t.store.Del(n)
	w.end()

	if code != lfht.DelOK {
		t.metrics.RecordRemoval(metric.RemovalFailed)
		t.log.Error("store refused delete", "code", code)
		return &DeleteError{Code: code}
	}
	t.domain.Retire(n)
	t.metrics.RecordRemoval(metric.RemovalOK)
	return nil
}

// Lookup returns a copy of the value stored under key, including writes
// made earlier in this session.
func (w *WriteSession[K, V]) Lookup(key K) (V, bool) {
	t := w.table

	w.begin()
	defer w.end()
	n := t.store.Lookup(t.hash(key), t.match(key))
	if n == nil {
		var zero V
		return zero, false
	}
	return n.Value, true
}

// Close releases the writer lock. If a mutation was interrupted by a panic
// the table is poisoned first.
func (w *WriteSession[K, V]) Close() error {
	if w.closed {
		return ErrSessionClosed
	}
	w.closed = true

	if w.mutating {
		w.mutating = false
		w.ctx.reader.Unlock()
		w.table.poison("write session closed mid-mutation")
	}
	w.ctx.write = nil
	w.table.writeMu.Unlock()
	return nil
}
