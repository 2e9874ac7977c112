// Package cmap is a map split into RWMutex-guarded shards. The benchmark
// uses it as the lock-striping baseline for the RCU table.
//
//	m := cmap.New[uint32, uint32]()
//	m.Set(1, 10)
//	v, ok := m.Get(1)
package cmap
