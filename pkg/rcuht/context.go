package rcuht

import (
	"fmt"
	"time"

	"github.com/yndnr/rcuht-go/internal/goid"
	"github.com/yndnr/rcuht-go/internal/urcu"
)

// ThreadContext is a goroutine's counted registration with a table.
type ThreadContext[K comparable, V any] struct {
	table  *Table[K, V]
	reader *urcu.Reader
	gid    int64
	refs   int

	seq   uint64
	reads int
	free  []*readState[K, V]
	write *WriteSession[K, V]
}

func (c *ThreadContext[K, V]) check() {
	if c.refs == 0 {
		panic(ErrContextClosed)
	}
	if c.table.ownerCheck && goid.Get() != c.gid {
		panic(ErrWrongGoroutine.WithDetails(fmt.Sprintf("owner %d", c.gid)))
	}
}

// Table returns the table the context belongs to.
func (c *ThreadContext[K, V]) Table() *Table[K, V] {
	return c.table
}

// Retain adds one reference to the context. Each Retain needs its own
// Close.
func (c *ThreadContext[K, V]) Retain() *ThreadContext[K, V] {
	c.check()
	if err := c.table.domain.Retain(c.reader); err != nil {
		panic(ErrContextClosed.WithCause(err))
	}
	c.refs++
	return c
}

// Close drops one reference. Dropping the last one unregisters the
// goroutine from the table's domain unless another context still holds the
// registration.
func (c *ThreadContext[K, V]) Close() error {
	if c.refs == 0 {
		return ErrContextClosed
	}
	if c.table.ownerCheck && goid.Get() != c.gid {
		panic(ErrWrongGoroutine.WithDetails(fmt.Sprintf("owner %d", c.gid)))
	}
	if c.refs == 1 && (c.reads > 0 || c.write != nil) {
		return ErrSessionsOpen.WithDetails(fmt.Sprintf("%d read, write=%t", c.reads, c.write != nil))
	}
	if err := c.table.domain.Unregister(c.reader); err != nil {
		return ErrSessionsOpen.WithCause(err)
	}

	c.refs--
	if c.refs == 0 {
		c.free = nil
		c.table.contextClosed()
	}
	return nil
}

// Read opens a read session. It never blocks.
func (c *ThreadContext[K, V]) Read() ReadSession[K, V] {
	c.check()

	var st *readState[K, V]
	if n := len(c.free); n > 0 {
		st = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		st = &readState[K, V]{ctx: c}
	}
	c.seq++
	st.seq = c.seq
	c.reads++
	c.reader.Lock()

	return ReadSession[K, V]{st: st, seq: st.seq}
}

// Write blocks until the table's writer lock is held and returns a write
// session. It fails with ErrLockPoisoned if an earlier write session
// panicked mid-mutation.
func (c *ThreadContext[K, V]) Write() (*WriteSession[K, V], error) {
	c.check()
	if c.write != nil {
		return nil, ErrWriteReentry
	}

	t := c.table
	start := time.Now()
	t.writeMu.Lock()
	t.metrics.WriteLockWait.Observe(time.Since(start).Seconds())

	return c.openWrite()
}

// TryWrite is Write without blocking. It reports false if another write
// session holds the lock.
func (c *ThreadContext[K, V]) TryWrite() (*WriteSession[K, V], bool, error) {
	c.check()
	if c.write != nil {
		return nil, false, ErrWriteReentry
	}
	if !c.table.writeMu.TryLock() {
		return nil, false, nil
	}
	ws, err := c.openWrite()
	return ws, err == nil, err
}

func (c *ThreadContext[K, V]) openWrite() (*WriteSession[K, V], error) {
	t := c.table
	if t.poisoned.Load() {
		t.writeMu.Unlock()
		return nil, ErrLockPoisoned
	}
	c.write = &WriteSession[K, V]{ctx: c, table: t}
	return c.write, nil
}

// View runs fn inside a read session.
func (c *ThreadContext[K, V]) View(fn func(ReadSession[K, V]) error) error {
	rs := c.Read()
	defer rs.Close()
	return fn(rs)
}

// Update runs fn inside a write session. A panic escaping fn poisons the
// table before it propagates.
func (c *ThreadContext[K, V]) Update(fn func(*WriteSession[K, V]) error) (err error) {
	ws, err := c.Write()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			c.table.poison(fmt.Sprint("panic in update: ", p))
			_ = ws.Close()
			panic(p)
		}
	}()

	err = fn(ws)
	if cerr := ws.Close(); err == nil {
		err = cerr
	}
	return err
}
