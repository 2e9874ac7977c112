package bench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/cpu"
	"golang.org/x/time/rate"

	"github.com/yndnr/rcuht-go/internal/affinity"
	"github.com/yndnr/rcuht-go/internal/telemetry/logger"
	"github.com/yndnr/rcuht-go/internal/telemetry/metric"
)

// lookupKey is the key every reader looks up.
const lookupKey uint32 = 0

// counter is written by one reader and read by the writer.
type counter struct {
	found    atomic.Uint64
	notFound atomic.Uint64
	_        cpu.CacheLinePad
}

func (c *counter) load(core int) Counts {
	return Counts{Core: core, Found: c.found.Load(), NotFound: c.notFound.Load()}
}

// Runner executes benchmark runs.
type Runner struct {
	cfg      Config
	log      logger.Logger
	metrics  *metric.Registry
	onSample func(Sample)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// WithMetrics sets the registry passed to the table under test.
func WithMetrics(m *metric.Registry) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithSampleFunc registers fn to receive each one-second sample. fn runs
// on the writer goroutine.
func WithSampleFunc(fn func(Sample)) Option {
	return func(r *Runner) {
		r.onSample = fn
	}
}

// NewRunner validates cfg and returns a runner for it.
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bench config: %w", err)
	}
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Default()
	}
	if r.metrics == nil {
		r.metrics = metric.Global()
	}
	return r, nil
}

// Run executes one benchmark. When ctx is canceled the run stops early and
// the report covers the samples taken so far.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	id, err := NewRunID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	ctx = logger.WithRunID(logger.WithLogger(ctx, r.log), id)
	log := logger.L(ctx)

	st, err := newStore(storeConfig{
		mode:    r.cfg.Mode,
		buckets: r.cfg.Buckets,
		log:     log.With("component", "rcuht"),
		metrics: r.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", r.cfg.Mode, err)
	}

	rep := &Report{
		RunID:   id,
		Mode:    r.cfg.Mode,
		Seconds: r.cfg.Seconds,
		Objects: r.cfg.Objects,
	}
	cores := r.cfg.ReaderCores()
	counters := make([]counter, len(cores))

	log.Info("bench started",
		"mode", r.cfg.Mode,
		"readers", len(cores),
		"writer_core", r.cfg.WriterCore(),
		"objects", r.cfg.Objects,
		"seconds", r.cfg.Seconds,
		"pin", r.cfg.Pin)

	var stop atomic.Bool
	var ready sync.WaitGroup
	ready.Add(len(cores))
	g, gctx := errgroup.WithContext(ctx)

	for i, core := range cores {
		g.Go(func() error {
			if r.cfg.Pin {
				if err := affinity.Pin(core); err != nil {
					ready.Done()
					return fmt.Errorf("pin reader to core %d: %w", core, err)
				}
			}
			rd := st.newReader()
			defer rd.close()
			ready.Done()

			c := &counters[i]
			for !stop.Load() {
				if rd.get(lookupKey) {
					c.found.Add(1)
				} else {
					c.notFound.Add(1)
				}
			}
			return nil
		})
	}
	ready.Wait()

	start := time.Now()
	g.Go(func() error {
		defer stop.Store(true)
		return r.write(gctx, log, st, counters, rep)
	})
	err = g.Wait()
	rep.Elapsed = time.Since(start)

	for i, core := range cores {
		rep.Readers = append(rep.Readers, counters[i].load(core))
	}
	rep.Table = st.stats()
	if cerr := st.close(); cerr != nil {
		log.Warn("store close failed", "error", cerr)
	}

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		log.Error("bench failed", "error", err)
		return nil, err
	}
	if ctx.Err() != nil {
		rep.Seconds = len(rep.Samples)
		log.Warn("bench interrupted", "samples", len(rep.Samples))
	}
	log.Info("bench finished", "elapsed", rep.Elapsed, "result", rep.String())
	return rep, nil
}

// write churns keys 0..Objects-1 until Seconds samples are taken. Keys
// stay in the table after the last sample.
func (r *Runner) write(ctx context.Context, log logger.Logger, st store, counters []counter, rep *Report) (err error) {
	if r.cfg.Pin {
		if err := affinity.Pin(r.cfg.WriterCore()); err != nil {
			return fmt.Errorf("pin writer to core %d: %w", r.cfg.WriterCore(), err)
		}
	}
	w, err := st.newWriter()
	if err != nil {
		return fmt.Errorf("open writer: %w", err)
	}
	defer func() {
		if cerr := w.close(); cerr != nil && err == nil {
			err = fmt.Errorf("close writer: %w", cerr)
		}
	}()

	var limiter *rate.Limiter
	if r.cfg.WriteInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(r.cfg.WriteInterval), 1)
	}

	cores := r.cfg.ReaderCores()
	prev := make([]Counts, len(counters))
	for i, core := range cores {
		prev[i].Core = core
	}
	last := time.Now()

	for {
		for k := uint32(0); k < r.cfg.Objects; k++ {
			w.insert(k, 0)
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				// Wait fails early when the deadline falls inside the
				// next interval.
				<-ctx.Done()
				return ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		rep.Iterations++

		if time.Since(last) >= time.Second {
			last = time.Now()
			s := Sample{Second: len(rep.Samples) + 1, Readers: make([]Counts, len(counters))}
			for i := range counters {
				cur := counters[i].load(cores[i])
				s.Readers[i] = cur.sub(prev[i])
				prev[i] = cur
			}
			rep.Samples = append(rep.Samples, s)
			log.Debug("bench sample", "second", s.Second, "sample", s.String())
			if r.onSample != nil {
				r.onSample(s)
			}
			if len(rep.Samples) >= r.cfg.Seconds {
				return nil
			}
		}

		for k := uint32(0); k < r.cfg.Objects; k++ {
			if err := w.remove(k); err != nil {
				return fmt.Errorf("remove key %d: %w", k, err)
			}
		}
	}
}
