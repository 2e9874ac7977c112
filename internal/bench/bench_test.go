package bench

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/rcuht-go/internal/telemetry/logger"
	"github.com/yndnr/rcuht-go/internal/telemetry/metric"
	"github.com/yndnr/rcuht-go/pkg/rcuht"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"rcu", ModeRCU, false},
		{"rwlock", ModeRWLock, false},
		{"sharded", ModeSharded, false},
		{"RCU", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"unknown mode", func(c *Config) { c.Mode = "mutex" }, true},
		{"one core", func(c *Config) { c.Cores = []int{0} }, true},
		{"duplicate core", func(c *Config) { c.Cores = []int{1, 1} }, true},
		{"negative core", func(c *Config) { c.Cores = []int{-1, 0} }, true},
		{"zero seconds", func(c *Config) { c.Seconds = 0 }, true},
		{"negative interval", func(c *Config) { c.WriteInterval = -time.Millisecond }, true},
		{"buckets not power of two", func(c *Config) { c.Buckets = 48 }, true},
		{"zero buckets", func(c *Config) { c.Buckets = 0 }, true},
		{"zero objects", func(c *Config) { c.Objects = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Cores(t *testing.T) {
	cfg := Config{Cores: []int{3, 5, 7}}
	if got := cfg.ReaderCores(); len(got) != 2 || got[0] != 3 || got[1] != 5 {
		t.Errorf("ReaderCores() = %v, want [3 5]", got)
	}
	if got := cfg.WriterCore(); got != 7 {
		t.Errorf("WriterCore() = %d, want 7", got)
	}
}

func TestSample_String(t *testing.T) {
	s := Sample{Second: 1, Readers: []Counts{
		{Core: 0, Found: 3, NotFound: 2},
		{Core: 1, Found: 0, NotFound: 1},
	}}
	want := "read: 5 [2 + 3] 1 [1 + 0]"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestReport_String(t *testing.T) {
	rep := &Report{Seconds: 2, Readers: []Counts{
		{Core: 0, Found: 10, NotFound: 4},
		{Core: 1, Found: 6, NotFound: 0},
	}}
	if got := rep.Totals(); got.Found != 16 || got.NotFound != 4 {
		t.Errorf("Totals() = %+v, want found 16 not_found 4", got)
	}
	want := "total read: 10 [2 + 8]"
	if got := rep.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestNewRunID(t *testing.T) {
	a, err := NewRunID()
	if err != nil {
		t.Fatalf("NewRunID() error = %v", err)
	}
	b, err := NewRunID()
	if err != nil {
		t.Fatalf("NewRunID() error = %v", err)
	}
	if _, err := ulid.Parse(a); err != nil {
		t.Errorf("ulid.Parse(%q) error = %v", a, err)
	}
	if a >= b {
		t.Errorf("run ids not increasing: %q then %q", a, b)
	}
}

func TestStores(t *testing.T) {
	for _, mode := range Modes {
		t.Run(string(mode), func(t *testing.T) {
			st, err := newStore(storeConfig{
				mode:    mode,
				buckets: 64,
				log:     logger.Discard(),
				metrics: metric.NewRegistry(),
			})
			if err != nil {
				t.Fatalf("newStore() error = %v", err)
			}

			rd := st.newReader()
			w, err := st.newWriter()
			if err != nil {
				t.Fatalf("newWriter() error = %v", err)
			}

			if rd.get(7) {
				t.Error("get(7) on empty store = true")
			}
			w.insert(7, 1)
			w.insert(7, 2)
			if !rd.get(7) {
				t.Error("get(7) after insert = false")
			}
			if err := w.remove(7); err != nil {
				t.Errorf("remove(7) error = %v", err)
			}
			if err := w.remove(7); !errors.Is(err, rcuht.ErrNotFound) {
				t.Errorf("second remove(7) error = %v, want ErrNotFound", err)
			}
			if rd.get(7) {
				t.Error("get(7) after remove = true")
			}

			if err := w.close(); err != nil {
				t.Errorf("writer close() error = %v", err)
			}
			rd.close()

			stats := st.stats()
			if (mode == ModeRCU) != (stats != nil) {
				t.Errorf("stats() = %v for mode %s", stats, mode)
			}
			if err := st.close(); err != nil {
				t.Errorf("close() error = %v", err)
			}
		})
	}
}

func TestStores_ShardCount(t *testing.T) {
	st, err := newStore(storeConfig{mode: ModeSharded, buckets: 8})
	if err != nil {
		t.Fatalf("newStore() error = %v", err)
	}
	if n := st.(*shardedStore).m.ShardCount(); n != 8 {
		t.Errorf("ShardCount() = %d, want 8", n)
	}
}

func TestRunner_Run(t *testing.T) {
	if testing.Short() {
		t.Skip("one-second benchmark run")
	}

	for _, mode := range Modes {
		t.Run(string(mode), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Mode = mode
			cfg.Cores = []int{0, 1, 2}
			cfg.Objects = 4
			cfg.Seconds = 1

			var samples []Sample
			r, err := NewRunner(cfg,
				WithLogger(logger.Discard()),
				WithMetrics(metric.NewRegistry()),
				WithSampleFunc(func(s Sample) { samples = append(samples, s) }))
			if err != nil {
				t.Fatalf("NewRunner() error = %v", err)
			}

			rep, err := r.Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if len(samples) != 1 || len(rep.Samples) != 1 {
				t.Fatalf("samples = %d (report %d), want 1", len(samples), len(rep.Samples))
			}
			if !strings.HasPrefix(samples[0].String(), "read: ") {
				t.Errorf("sample = %q, want read: prefix", samples[0].String())
			}
			if len(rep.Readers) != 2 {
				t.Fatalf("Readers = %d, want 2", len(rep.Readers))
			}
			if rep.Totals().Total() == 0 {
				t.Error("readers made no lookups")
			}
			if rep.Iterations == 0 {
				t.Error("writer made no iterations")
			}
			if rep.RunID == "" {
				t.Error("RunID is empty")
			}
			if !strings.HasPrefix(rep.String(), "total read: ") {
				t.Errorf("String() = %q", rep.String())
			}

			if mode == ModeRCU {
				if rep.Table == nil {
					t.Fatal("Table stats missing for rcu mode")
				}
				if rep.Table.Entries != int(cfg.Objects) {
					t.Errorf("Table.Entries = %d, want %d", rep.Table.Entries, cfg.Objects)
				}
			} else if rep.Table != nil {
				t.Errorf("Table stats = %+v for %s mode, want nil", rep.Table, mode)
			}
		})
	}
}

func TestRunner_Canceled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seconds = 60

	r, err := NewRunner(cfg, WithLogger(logger.Discard()), WithMetrics(metric.NewRegistry()))
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	rep, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run() took %v after cancel", elapsed)
	}
	if len(rep.Samples) != 0 || rep.Seconds != 0 {
		t.Errorf("Samples = %d, Seconds = %d, want 0", len(rep.Samples), rep.Seconds)
	}
}

func TestNewRunner_Invalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cores = nil
	if _, err := NewRunner(cfg); err == nil {
		t.Error("NewRunner() with no cores succeeded")
	}
}
