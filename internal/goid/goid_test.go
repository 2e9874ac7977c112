package goid

import (
	"sync"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"running", "goroutine 123 [running]:\nmain.main()", 123},
		{"single digit", "goroutine 1 [running]:", 1},
		{"empty", "", 0},
		{"garbage", "not a stack trace", 0},
		{"no digits", "goroutine [running]", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parse([]byte(tt.in)); got != tt.want {
				t.Errorf("parse(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestGet_Stable(t *testing.T) {
	a, b := Get(), Get()
	if a == 0 {
		t.Fatal("Get() = 0, want nonzero")
	}
	if a != b {
		t.Errorf("Get() = %d then %d, want stable id", a, b)
	}
}

func TestGet_Distinct(t *testing.T) {
	const n = 16
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = Get()
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate goroutine id %d", id)
		}
		seen[id] = true
	}
}

func BenchmarkGet(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Get()
	}
}
