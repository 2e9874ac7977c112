package affinity

import (
	"errors"
	"runtime"
	"testing"
)

func TestAllowed(t *testing.T) {
	cpus, err := Allowed()
	if err != nil {
		t.Fatalf("Allowed() error = %v", err)
	}
	if len(cpus) == 0 {
		t.Fatal("Allowed() returned no CPUs")
	}
	for i := 1; i < len(cpus); i++ {
		if cpus[i] <= cpus[i-1] {
			t.Fatalf("Allowed() = %v, want ascending ids", cpus)
		}
	}
}

func TestPin(t *testing.T) {
	cpus, err := Allowed()
	if err != nil || len(cpus) == 0 {
		t.Skip("no CPU list available")
	}

	errc := make(chan error, 1)
	go func() {
		// Exits while locked so the pinned thread is discarded.
		errc <- Pin(cpus[0])
	}()
	err = <-errc
	if runtime.GOOS != "linux" {
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("Pin() error = %v, want %v", err, ErrUnsupported)
		}
		return
	}
	if err != nil {
		t.Errorf("Pin(%d) error = %v", cpus[0], err)
	}
}

func TestPin_Negative(t *testing.T) {
	if err := Pin(-1); err == nil {
		t.Error("Pin(-1) error = nil, want error")
	}
}
