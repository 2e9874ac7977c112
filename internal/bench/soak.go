package bench

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yndnr/rcuht-go/internal/telemetry/logger"
	"github.com/yndnr/rcuht-go/internal/telemetry/metric"
	"github.com/yndnr/rcuht-go/internal/urcu"
	"github.com/yndnr/rcuht-go/pkg/rcuht"
)

// SoakConfig describes a soak run: random readers racing one writer on an
// auto-resizing table, checking that no reader observes a reclaimed entry.
type SoakConfig struct {
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Readers     int           `json:"readers" yaml:"readers"`
	Keys        int           `json:"keys" yaml:"keys"`
	InitBuckets uint64        `json:"init_buckets" yaml:"init_buckets"`
	MaxBuckets  uint64        `json:"max_buckets" yaml:"max_buckets"`
	// WriteRate caps writer operations per second; zero is unlimited.
	WriteRate float64 `json:"write_rate" yaml:"write_rate"`
	Seed      uint64  `json:"seed" yaml:"seed"`
}

// DefaultSoakConfig returns the defaults used by the soak command.
func DefaultSoakConfig() SoakConfig {
	return SoakConfig{
		Duration:    time.Minute,
		Readers:     4,
		Keys:        4096,
		InitBuckets: 16,
		MaxBuckets:  1 << 16,
	}
}

// Validate checks the configuration.
func (c SoakConfig) Validate() error {
	switch {
	case c.Duration <= 0:
		return errors.New("duration must be positive")
	case c.Readers <= 0:
		return errors.New("at least one reader is required")
	case c.Keys <= 0:
		return errors.New("keys must be positive")
	case c.WriteRate < 0:
		return errors.New("write rate must not be negative")
	}
	return nil
}

// SoakReport summarizes a soak run.
type SoakReport struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
	Reads      uint64        `json:"reads" yaml:"reads"`
	Hits       uint64        `json:"hits" yaml:"hits"`
	Inserts    uint64        `json:"inserts" yaml:"inserts"`
	Removes    uint64        `json:"removes" yaml:"removes"`
	Reclaimed  uint64        `json:"reclaimed" yaml:"reclaimed"`
	Violations uint64        `json:"violations" yaml:"violations"`
	Table      rcuht.Stats   `json:"table" yaml:"table"`
}

// OK reports whether the run saw no violations.
func (r *SoakReport) OK() bool {
	return r.Violations == 0
}

func (r *SoakReport) String() string {
	return fmt.Sprintf("soak %s: reads=%d hits=%d inserts=%d removes=%d reclaimed=%d violations=%d",
		r.RunID, r.Reads, r.Hits, r.Inserts, r.Removes, r.Reclaimed, r.Violations)
}

// record is a table value whose checksum is broken when it is reclaimed.
type record struct {
	key  int
	gen  uint64
	sum  atomic.Uint64
	dead atomic.Bool
}

func checksum(key int, gen uint64) uint64 {
	return uint64(key)*0x9e3779b97f4a7c15 ^ gen
}

func newRecord(key int, gen uint64) *record {
	r := &record{key: key, gen: gen}
	r.sum.Store(checksum(key, gen))
	return r
}

func (r *record) valid(key int) bool {
	return !r.dead.Load() && r.key == key && r.sum.Load() == checksum(r.key, r.gen)
}

func (r *record) kill() {
	r.dead.Store(true)
	r.sum.Store(0)
}

// Soak runs a soak test until cfg.Duration elapses or ctx is canceled.
func Soak(ctx context.Context, cfg SoakConfig, opts ...Option) (*SoakReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid soak config: %w", err)
	}
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Default()
	}
	if r.metrics == nil {
		r.metrics = metric.Global()
	}

	id, err := NewRunID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	ctx = logger.WithRunID(logger.WithLogger(ctx, r.log), id)
	log := logger.L(ctx)

	domain := urcu.NewDomain(
		urcu.WithName("soak-"+id),
		urcu.WithLogger(log.With("component", "urcu")),
		urcu.WithMetrics(r.metrics))
	defer domain.Close()

	rep := &SoakReport{RunID: id}
	var reclaimed atomic.Uint64
	t, err := rcuht.New[int, *record](cfg.InitBuckets, cfg.InitBuckets, cfg.MaxBuckets, true,
		rcuht.WithDomain(domain),
		rcuht.WithLogger(log.With("component", "rcuht")),
		rcuht.WithMetrics(r.metrics),
		rcuht.WithReclaimFunc(func(_ int, rec *record) {
			rec.kill()
			reclaimed.Add(1)
		}))
	if err != nil {
		return nil, err
	}

	log.Info("soak started", "duration", cfg.Duration, "readers", cfg.Readers, "keys", cfg.Keys)

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var reads, hits, violations atomic.Uint64
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < cfg.Readers; i++ {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)+1))
			tc := t.Thread()
			defer tc.Close()
			var n, h, bad uint64
			for gctx.Err() == nil {
				key := rng.IntN(cfg.Keys)
				rs := tc.Read()
				if rec, ok := rs.Lookup(key); ok {
					h++
					if !rec.valid(key) {
						bad++
					}
				}
				if n%1024 == 0 {
					rs.Range(func(k int, rec *record) bool {
						if !rec.valid(k) {
							bad++
						}
						return true
					})
				}
				rs.Close()
				n++
			}
			reads.Add(n)
			hits.Add(h)
			if bad > 0 {
				violations.Add(bad)
				log.Error("reader observed reclaimed entries", "reader", i, "count", bad)
			}
			return nil
		})
	}

	g.Go(func() error {
		var limiter *rate.Limiter
		if cfg.WriteRate > 0 {
			limiter = rate.NewLimiter(rate.Limit(cfg.WriteRate), 1)
		}
		rng := rand.New(rand.NewPCG(cfg.Seed, 0))
		tc := t.Thread()
		defer tc.Close()
		var gen uint64
		for {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return nil
				}
			} else if gctx.Err() != nil {
				return nil
			}
			key := rng.IntN(cfg.Keys)
			err := tc.Update(func(ws *rcuht.WriteSession[int, *record]) error {
				if rng.IntN(3) == 0 {
					if err := ws.Remove(key); err == nil {
						rep.Removes++
					} else if !errors.Is(err, rcuht.ErrNotFound) {
						return err
					}
					return nil
				}
				gen++
				ws.InsertOrReplace(key, newRecord(key, gen))
				rep.Inserts++
				return nil
			})
			if err != nil {
				return fmt.Errorf("soak writer: %w", err)
			}
		}
	})

	err = g.Wait()
	rep.Elapsed = time.Since(start)
	rep.Table = t.Stats()
	if cerr := t.Close(); cerr != nil && err == nil {
		err = cerr
	}
	rep.Reads = reads.Load()
	rep.Hits = hits.Load()
	rep.Reclaimed = reclaimed.Load()
	rep.Violations = violations.Load()
	if err != nil {
		log.Error("soak failed", "error", err)
		return rep, err
	}

	if rep.OK() {
		log.Info("soak finished", "result", rep.String())
	} else {
		log.Error("soak found violations", "result", rep.String())
	}
	return rep, nil
}
