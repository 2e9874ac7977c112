package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/rcuht-go/internal/bench"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Output != "table" {
		t.Errorf("Output = %q, want %q", cfg.Output, "table")
	}
	if cfg.Bench.Mode != "rcu" {
		t.Errorf("Bench.Mode = %q, want %q", cfg.Bench.Mode, "rcu")
	}
	if cfg.Bench.Objects != 1 || cfg.Bench.Seconds != 10 {
		t.Errorf("Bench objects/seconds = %d/%d, want 1/10", cfg.Bench.Objects, cfg.Bench.Seconds)
	}
	if cfg.Bench.WriteInterval != time.Millisecond {
		t.Errorf("Bench.WriteInterval = %v, want 1ms", cfg.Bench.WriteInterval)
	}
	if err := cfg.Verify(); err != nil {
		t.Errorf("Default().Verify() error = %v", err)
	}
}

func TestConfig_Verify(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad output", func(c *Config) { c.Output = "csv" }, "output"},
		{"bad mode", func(c *Config) { c.Bench.Mode = "spin" }, "bench"},
		{"one core", func(c *Config) { c.Bench.Cores = []int{0} }, "bench"},
		{"no soak readers", func(c *Config) { c.Soak.Readers = 0 }, "soak"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Verify()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Verify() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_BenchRun(t *testing.T) {
	cfg := Default()
	cfg.Bench.Mode = "sharded"
	cfg.Bench.Cores = []int{2, 3, 4}
	cfg.Bench.Pin = true

	run, err := cfg.BenchRun()
	if err != nil {
		t.Fatalf("BenchRun() error = %v", err)
	}
	if run.Mode != bench.ModeSharded {
		t.Errorf("Mode = %q, want %q", run.Mode, bench.ModeSharded)
	}
	if run.WriterCore() != 4 || !run.Pin {
		t.Errorf("WriterCore() = %d, Pin = %t", run.WriterCore(), run.Pin)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, _, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Bench.Buckets != 64 {
		t.Errorf("Bench.Buckets = %d, want 64", cfg.Bench.Buckets)
	}
}

func TestLoad_FileEnvFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rcuht.yaml")
	content := `
output: json
bench:
  mode: rwlock
  cores: [0, 1, 2]
  seconds: 3
soak:
  duration: 30s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("RCUHT_BENCH_OBJECTS", "8")

	cfg, sources, err := Load(path, map[string]any{"bench.seconds": 5})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := strings.Join(sources, ","); got != "file,env,flags" {
		t.Errorf("sources = %q, want %q", got, "file,env,flags")
	}

	if cfg.Output != "json" {
		t.Errorf("Output = %q, want json", cfg.Output)
	}
	if cfg.Bench.Mode != "rwlock" || len(cfg.Bench.Cores) != 3 {
		t.Errorf("Bench = %+v", cfg.Bench)
	}
	if cfg.Bench.Objects != 8 {
		t.Errorf("Bench.Objects = %d, want 8 from env", cfg.Bench.Objects)
	}
	if cfg.Bench.Seconds != 5 {
		t.Errorf("Bench.Seconds = %d, want 5 from flags", cfg.Bench.Seconds)
	}
	if cfg.Soak.Duration != 30*time.Second {
		t.Errorf("Soak.Duration = %v, want 30s", cfg.Soak.Duration)
	}
	if cfg.Soak.Readers != 4 {
		t.Errorf("Soak.Readers = %d, want default 4", cfg.Soak.Readers)
	}
}

func TestLoad_Invalid(t *testing.T) {
	if _, _, err := Load("", map[string]any{"bench.mode": "spin"}); err == nil {
		t.Error("Load() with invalid mode succeeded")
	}
	if _, _, err := Load("/nonexistent/rcuht.yaml", nil); err == nil {
		t.Error("Load() with missing file succeeded")
	}
}
