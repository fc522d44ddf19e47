package metrics

import (
	"sync/atomic"
)

// latencyBuckets mirror the teacher's logarithmic histogram, rescaled for
// RT cycle timing instead of block I/O: the shortest bucket (1us) sits
// below any realistic cycle time, the longest (1s) is far past any
// overrun a watchdog would tolerate before declaring the process dead.
var latencyBuckets = [...]uint64{
	1_000,       // 1us
	10_000,      // 10us
	50_000,      // 50us
	100_000,     // 100us
	250_000,     // 250us
	500_000,     // 500us
	1_000_000,   // 1ms
	10_000_000,  // 10ms
	100_000_000, // 100ms
	1_000_000_000,
}

// CycleMetrics accumulates per-cycle timing for a single RT loop (HAL or
// CU). All fields are updated from the cycle-runner goroutine only, so
// plain atomics (rather than a mutex) keep Snapshot lock-free for
// concurrent readers (diagnostics endpoints, supervisor probes).
type CycleMetrics struct {
	cycles   atomic.Uint64
	overruns atomic.Uint64
	totalNs  atomic.Uint64
	maxNs    atomic.Uint64
	lastNs   atomic.Uint64
	buckets  [len(latencyBuckets) + 1]atomic.Uint64
	budgetNs uint64
}

// NewCycleMetrics returns a CycleMetrics that classifies any cycle
// duration exceeding budgetNs as an overrun.
func NewCycleMetrics(budgetNs uint64) *CycleMetrics {
	return &CycleMetrics{budgetNs: budgetNs}
}

// RecordCycle records the wall-clock duration of one cycle. It returns
// true if this cycle exceeded the configured budget.
func (m *CycleMetrics) RecordCycle(durationNs uint64) (overran bool) {
	m.cycles.Add(1)
	m.totalNs.Add(durationNs)
	m.lastNs.Store(durationNs)

	for {
		cur := m.maxNs.Load()
		if durationNs <= cur {
			break
		}
		if m.maxNs.CompareAndSwap(cur, durationNs) {
			break
		}
	}

	m.recordBucket(durationNs)

	if m.budgetNs > 0 && durationNs > m.budgetNs {
		m.overruns.Add(1)
		return true
	}
	return false
}

func (m *CycleMetrics) recordBucket(durationNs uint64) {
	for i, edge := range latencyBuckets {
		if durationNs <= edge {
			m.buckets[i].Add(1)
			return
		}
	}
	m.buckets[len(m.buckets)-1].Add(1)
}

// Snapshot is a point-in-time, consistency-best-effort view of
// CycleMetrics (individual atomics may update between reads, same
// tradeoff the teacher's MetricsSnapshot makes).
type Snapshot struct {
	Cycles      uint64
	Overruns    uint64
	LastNs      uint64
	MaxNs       uint64
	MeanNs      float64
	P50Ns       uint64
	P95Ns       uint64
	P99Ns       uint64
	OverrunRate float64
}

// Snapshot computes derived statistics from the accumulated counters.
func (m *CycleMetrics) Snapshot() Snapshot {
	cycles := m.cycles.Load()
	s := Snapshot{
		Cycles:   cycles,
		Overruns: m.overruns.Load(),
		LastNs:   m.lastNs.Load(),
		MaxNs:    m.maxNs.Load(),
	}
	if cycles > 0 {
		s.MeanNs = float64(m.totalNs.Load()) / float64(cycles)
		s.OverrunRate = float64(s.Overruns) / float64(cycles)
	}
	s.P50Ns = m.percentile(50)
	s.P95Ns = m.percentile(95)
	s.P99Ns = m.percentile(99)
	return s
}

// percentile estimates a percentile from the cumulative histogram,
// same approach as the teacher's calculatePercentile: walk buckets in
// order, accumulate counts, and return the edge of the bucket that
// crosses the target rank.
func (m *CycleMetrics) percentile(p float64) uint64 {
	total := m.cycles.Load()
	if total == 0 {
		return 0
	}
	target := uint64(p / 100 * float64(total))
	if target == 0 {
		target = 1
	}

	var cumulative uint64
	for i := range m.buckets {
		cumulative += m.buckets[i].Load()
		if cumulative >= target {
			if i < len(latencyBuckets) {
				return latencyBuckets[i]
			}
			return m.maxNs.Load()
		}
	}
	return m.maxNs.Load()
}

// Reset zeroes all counters. Used between test runs and after a
// supervisor-triggered restart where stale statistics would mislead.
func (m *CycleMetrics) Reset() {
	m.cycles.Store(0)
	m.overruns.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.lastNs.Store(0)
	for i := range m.buckets {
		m.buckets[i].Store(0)
	}
}
