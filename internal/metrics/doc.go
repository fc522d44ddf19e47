// Package metrics tracks RT cycle timing for the HAL and CU processes:
// cycle counts, overrun counts, and a latency histogram with bucket-edge
// percentile estimates, shared by internal/hal and internal/cu (spec.md 4.3's
// cycle budget, 8.1's cycle-budget invariant).
package metrics
