//go:build !linux

package affinity

import "runtime"

func setAffinity(int) error {
	return ErrUnsupported
}

func allowedCPUs() ([]int, error) {
	cpus := make([]int, runtime.NumCPU())
	for i := range cpus {
		cpus[i] = i
	}
	return cpus, nil
}
