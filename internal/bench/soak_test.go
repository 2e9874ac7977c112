package bench

import (
	"context"
	"testing"
	"time"

	"github.com/yndnr/rcuht-go/internal/telemetry/logger"
	"github.com/yndnr/rcuht-go/internal/telemetry/metric"
)

func TestSoakConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*SoakConfig)
		wantErr bool
	}{
		{"default", func(*SoakConfig) {}, false},
		{"zero duration", func(c *SoakConfig) { c.Duration = 0 }, true},
		{"no readers", func(c *SoakConfig) { c.Readers = 0 }, true},
		{"no keys", func(c *SoakConfig) { c.Keys = 0 }, true},
		{"negative rate", func(c *SoakConfig) { c.WriteRate = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSoakConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecord(t *testing.T) {
	r := newRecord(5, 9)
	if !r.valid(5) {
		t.Error("fresh record invalid")
	}
	if r.valid(6) {
		t.Error("record valid under wrong key")
	}
	r.kill()
	if r.valid(5) {
		t.Error("killed record still valid")
	}
}

func TestSoak(t *testing.T) {
	cfg := SoakConfig{
		Duration:    300 * time.Millisecond,
		Readers:     3,
		Keys:        64,
		InitBuckets: 4,
		MaxBuckets:  1024,
		Seed:        42,
	}

	rep, err := Soak(context.Background(), cfg,
		WithLogger(logger.Discard()),
		WithMetrics(metric.NewRegistry()))
	if err != nil {
		t.Fatalf("Soak() error = %v", err)
	}

	if !rep.OK() {
		t.Errorf("Violations = %d, want 0", rep.Violations)
	}
	if rep.Reads == 0 {
		t.Error("no reads")
	}
	if rep.Inserts == 0 {
		t.Error("no inserts")
	}
	// Close removes what is left, so every inserted record is reclaimed.
	if rep.Reclaimed != rep.Inserts {
		t.Errorf("Reclaimed = %d, want %d", rep.Reclaimed, rep.Inserts)
	}
	if rep.Table.Poisoned {
		t.Error("table poisoned")
	}
}

func TestSoak_RateLimited(t *testing.T) {
	cfg := SoakConfig{
		Duration:    200 * time.Millisecond,
		Readers:     1,
		Keys:        8,
		InitBuckets: 2,
		MaxBuckets:  8,
		WriteRate:   100,
	}

	rep, err := Soak(context.Background(), cfg,
		WithLogger(logger.Discard()),
		WithMetrics(metric.NewRegistry()))
	if err != nil {
		t.Fatalf("Soak() error = %v", err)
	}
	if ops := rep.Inserts + rep.Removes; ops > 40 {
		t.Errorf("writer made %d ops in 200ms at 100/s", ops)
	}
}
