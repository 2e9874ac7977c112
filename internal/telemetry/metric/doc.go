// Package metric provides Prometheus metrics for rcuht.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: private Prometheus registry, HTTP handler and text dump
//   - collector.go: scrape-time collector for grace-period domain state
//
// Metrics include:
//
//   - Insert, replacement and removal counters
//   - Writer lock wait histogram
//   - Grace-period count, duration and stall counters
//   - Retired, reclaimed and pending node counts
//
// Metrics are exposed through Registry.Handler or dumped with WriteText.
package metric
