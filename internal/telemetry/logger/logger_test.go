package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decode(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(b, &entry); err != nil {
		t.Fatalf("json.Unmarshal(%q) error = %v", b, err)
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"text", Config{Level: "debug", Format: "text"}, false},
		{"console alias", Config{Format: "console"}, false},
		{"empty format", Config{Level: "warn"}, false},
		{"unknown format", Config{Format: "xml"}, true},
		{"unknown level", Config{Level: "verbose"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, tt := range []struct {
		level string
		log   func(string, ...any)
	}{
		{"DEBUG", l.Debug},
		{"INFO", l.Info},
		{"WARN", l.Warn},
		{"ERROR", l.Error},
	} {
		buf.Reset()
		tt.log("grace period", "readers", 3)
		entry := decode(t, buf.Bytes())
		if entry["level"] != tt.level {
			t.Errorf("level = %v, want %s", entry["level"], tt.level)
		}
		if entry["msg"] != "grace period" {
			t.Errorf("msg = %v, want %q", entry["msg"], "grace period")
		}
		if entry["readers"] != float64(3) {
			t.Errorf("readers = %v, want 3", entry["readers"])
		}
	}
}

func TestLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.With("component", "rcuht").Info("table created", "buckets", 64)
	out := buf.String()
	for _, want := range []string{`msg="table created"`, "component=rcuht", "buckets=64"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "error", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { SetLevel("info") })

	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info logged at error level: %s", buf.String())
	}

	SetLevel("debug")
	l.Debug("kept")
	if buf.Len() == 0 {
		t.Error("debug not logged after SetLevel(debug)")
	}

	SetLevel("bogus")
	if got := GetLevel(); got != "debug" {
		t.Errorf("GetLevel() after unknown name = %q, want %q", got, "debug")
	}
}

func TestGetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })
	tests := []struct {
		in, want string
	}{
		{"debug", "debug"},
		{"INFO", "info"},
		{"warning", "warn"},
		{"Error", "error"},
		{"", "info"},
	}
	for _, tt := range tests {
		SetLevel(tt.in)
		if got := GetLevel(); got != tt.want {
			t.Errorf("SetLevel(%q); GetLevel() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, lv := range []string{"debug", "INFO", "warn", "warning", "error"} {
		if !ValidLevel(lv) {
			t.Errorf("ValidLevel(%q) = false, want true", lv)
		}
	}
	if ValidLevel("verbose") {
		t.Error(`ValidLevel("verbose") = true, want false`)
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("dropped")
	l.With("k", "v").WithContext(context.Background()).Warn("dropped")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	prev := Default()
	SetDefault(l)
	t.Cleanup(func() { SetDefault(prev) })

	Component("urcu", "domain", "default").Info("started")
	entry := decode(t, buf.Bytes())
	if entry["component"] != "urcu" || entry["domain"] != "default" {
		t.Errorf("entry = %v, want component=urcu domain=default", entry)
	}
}

func TestSetDefault_Nil(t *testing.T) {
	prev := Default()
	SetDefault(nil)
	if Default() != prev {
		t.Error("SetDefault(nil) replaced the default logger")
	}
}

func TestRunID(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithRunID(WithLogger(context.Background(), l), "01HZX")
	if got := RunIDFromContext(ctx); got != "01HZX" {
		t.Errorf("RunIDFromContext() = %q, want %q", got, "01HZX")
	}

	L(ctx).With("reader", 1).Info("sample")
	entry := decode(t, buf.Bytes())
	if entry["run_id"] != "01HZX" {
		t.Errorf("run_id = %v, want 01HZX", entry["run_id"])
	}

	buf.Reset()
	l.WithContext(ctx).Info("bound")
	if entry := decode(t, buf.Bytes()); entry["run_id"] != "01HZX" {
		t.Errorf("WithContext run_id = %v, want 01HZX", entry["run_id"])
	}

	buf.Reset()
	l.Info("unbound")
	if _, ok := decode(t, buf.Bytes())["run_id"]; ok {
		t.Error("run_id present on a logger without a run context")
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Error("FromContext() returned nil")
	}
	if RunIDFromContext(context.Background()) != "" {
		t.Error("RunIDFromContext() on empty context should be empty")
	}
}
