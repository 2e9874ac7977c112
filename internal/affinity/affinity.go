// Package affinity pins goroutines to CPU cores for benchmarking.
//
// Pin locks the calling goroutine to its OS thread and restricts that
// thread to one core. The goroutine is expected to exit while still locked,
// which makes the runtime discard the pinned thread instead of returning it
// to the scheduler pool with a narrowed CPU mask.
package affinity

import (
	"errors"
	"runtime"
)

// ErrUnsupported is returned on platforms without thread affinity support.
var ErrUnsupported = errors.New("affinity: not supported on this platform")

// Pin binds the calling goroutine's OS thread to cpu.
func Pin(cpu int) error {
	if cpu < 0 {
		return errors.New("affinity: negative cpu id")
	}
	runtime.LockOSThread()
	if err := setAffinity(cpu); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

// Allowed returns the CPUs the process may run on.
func Allowed() ([]int, error) {
	return allowedCPUs()
}
