package bench

import (
	"fmt"
	"sync"

	"github.com/yndnr/rcuht-go/internal/cmap"
	"github.com/yndnr/rcuht-go/internal/telemetry/logger"
	"github.com/yndnr/rcuht-go/internal/telemetry/metric"
	"github.com/yndnr/rcuht-go/pkg/rcuht"
)

// Mode selects the table implementation under test.
type Mode string

const (
	// ModeRCU benchmarks rcuht.
	ModeRCU Mode = "rcu"
	// ModeRWLock benchmarks a map guarded by one RWMutex.
	ModeRWLock Mode = "rwlock"
	// ModeSharded benchmarks a map split into RWMutex-guarded shards.
	ModeSharded Mode = "sharded"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeRCU, ModeRWLock, ModeSharded}

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (want rcu, rwlock or sharded)", s)
}

// store is one table implementation. newReader and newWriter are called on
// the goroutine that will use the returned handle.
type store interface {
	newReader() reader
	newWriter() (writer, error)
	stats() *rcuht.Stats
	close() error
}

type reader interface {
	get(key uint32) bool
	close()
}

type writer interface {
	insert(key, value uint32)
	remove(key uint32) error
	close() error
}

type storeConfig struct {
	mode    Mode
	buckets uint64
	log     logger.Logger
	metrics *metric.Registry
}

func newStore(cfg storeConfig) (store, error) {
	switch cfg.mode {
	case ModeRCU:
		t, err := rcuht.New[uint32, uint32](cfg.buckets, cfg.buckets, cfg.buckets, false,
			rcuht.WithLogger(cfg.log),
			rcuht.WithMetrics(cfg.metrics))
		if err != nil {
			return nil, err
		}
		return &rcuStore{t: t}, nil
	case ModeRWLock:
		return &rwStore{m: make(map[uint32]uint32)}, nil
	case ModeSharded:
		return &shardedStore{m: cmap.NewWithShards[uint32, uint32](int(cfg.buckets))}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.mode)
	}
}

type rcuStore struct {
	t *rcuht.Table[uint32, uint32]
}

func (s *rcuStore) newReader() reader {
	return &rcuReader{ctx: s.t.Thread()}
}

func (s *rcuStore) newWriter() (writer, error) {
	ctx := s.t.Thread()
	ws, err := ctx.Write()
	if err != nil {
		ctx.Close()
		return nil, err
	}
	return &rcuWriter{ctx: ctx, ws: ws}, nil
}

func (s *rcuStore) stats() *rcuht.Stats {
	st := s.t.Stats()
	return &st
}

func (s *rcuStore) close() error {
	return s.t.Close()
}

type rcuReader struct {
	ctx *rcuht.ThreadContext[uint32, uint32]
}

func (r *rcuReader) get(key uint32) bool {
	rs := r.ctx.Read()
	ref, ok := rs.Get(key)
	if ok {
		_ = ref.Value()
	}
	rs.Close()
	return ok
}

func (r *rcuReader) close() {
	r.ctx.Close()
}

// rcuWriter holds one write session for the whole run.
type rcuWriter struct {
	ctx *rcuht.ThreadContext[uint32, uint32]
	ws  *rcuht.WriteSession[uint32, uint32]
}

func (w *rcuWriter) insert(key, value uint32) {
	w.ws.InsertOrReplace(key, value)
}

func (w *rcuWriter) remove(key uint32) error {
	return w.ws.Remove(key)
}

func (w *rcuWriter) close() error {
	if err := w.ws.Close(); err != nil {
		return err
	}
	return w.ctx.Close()
}

type rwStore struct {
	mu sync.RWMutex
	m  map[uint32]uint32
}

func (s *rwStore) newReader() reader          { return rwReader{s} }
func (s *rwStore) newWriter() (writer, error) { return rwWriter{s}, nil }
func (s *rwStore) stats() *rcuht.Stats        { return nil }
func (s *rwStore) close() error               { return nil }

type rwReader struct{ s *rwStore }

func (r rwReader) get(key uint32) bool {
	r.s.mu.RLock()
	_, ok := r.s.m[key]
	r.s.mu.RUnlock()
	return ok
}

func (r rwReader) close() {}

type rwWriter struct{ s *rwStore }

func (w rwWriter) insert(key, value uint32) {
	w.s.mu.Lock()
	w.s.m[key] = value
	w.s.mu.Unlock()
}

func (w rwWriter) remove(key uint32) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	if _, ok := w.s.m[key]; !ok {
		return rcuht.ErrNotFound
	}
	delete(w.s.m, key)
	return nil
}

func (w rwWriter) close() error { return nil }

// shardedStore spreads keys over RWMutex-guarded shards.
type shardedStore struct {
	m *cmap.Map[uint32, uint32]
}

func (s *shardedStore) newReader() reader          { return shardedReader{s.m} }
func (s *shardedStore) newWriter() (writer, error) { return shardedWriter{s.m}, nil }
func (s *shardedStore) stats() *rcuht.Stats        { return nil }
func (s *shardedStore) close() error               { return nil }

type shardedReader struct{ m *cmap.Map[uint32, uint32] }

func (r shardedReader) get(key uint32) bool {
	return r.m.Has(key)
}

func (r shardedReader) close() {}

type shardedWriter struct{ m *cmap.Map[uint32, uint32] }

func (w shardedWriter) insert(key, value uint32) {
	w.m.Set(key, value)
}

func (w shardedWriter) remove(key uint32) error {
	if !w.m.Delete(key) {
		return rcuht.ErrNotFound
	}
	return nil
}

func (w shardedWriter) close() error { return nil }
