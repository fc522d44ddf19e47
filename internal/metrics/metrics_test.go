package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCycleBasic(t *testing.T) {
	m := NewCycleMetrics(100_000) // 100us budget

	overran := m.RecordCycle(40_000)
	assert.False(t, overran)

	overran = m.RecordCycle(150_000)
	assert.True(t, overran)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.Cycles)
	assert.Equal(t, uint64(1), snap.Overruns)
	assert.Equal(t, uint64(150_000), snap.MaxNs)
	assert.Equal(t, uint64(150_000), snap.LastNs)
	assert.InDelta(t, 0.5, snap.OverrunRate, 0.001)
}

func TestSnapshotEmpty(t *testing.T) {
	m := NewCycleMetrics(100_000)
	snap := m.Snapshot()
	assert.Zero(t, snap.Cycles)
	assert.Zero(t, snap.MeanNs)
	assert.Zero(t, snap.P99Ns)
}

func TestPercentileMonotonic(t *testing.T) {
	m := NewCycleMetrics(1_000_000)
	for i := 0; i < 9_000; i++ {
		m.RecordCycle(20_000)
	}
	for i := 0; i < 900; i++ {
		m.RecordCycle(80_000)
	}
	for i := 0; i < 100; i++ {
		m.RecordCycle(900_000)
	}

	snap := m.Snapshot()
	require.LessOrEqual(t, snap.P50Ns, snap.P95Ns)
	require.LessOrEqual(t, snap.P95Ns, snap.P99Ns)
	assert.Equal(t, uint64(10_000), snap.Cycles)
	assert.Zero(t, snap.Overruns)
}

func TestNoBudgetNeverOverruns(t *testing.T) {
	m := NewCycleMetrics(0)
	for i := 0; i < 100; i++ {
		overran := m.RecordCycle(5_000_000)
		assert.False(t, overran)
	}
	assert.Zero(t, m.Snapshot().Overruns)
}

func TestReset(t *testing.T) {
	m := NewCycleMetrics(100_000)
	m.RecordCycle(50_000)
	m.RecordCycle(200_000)
	require.NotZero(t, m.Snapshot().Cycles)

	m.Reset()
	snap := m.Snapshot()
	assert.Zero(t, snap.Cycles)
	assert.Zero(t, snap.Overruns)
	assert.Zero(t, snap.MaxNs)
}

func TestCycleMetricsObserver(t *testing.T) {
	m := NewCycleMetrics(100_000)
	obs := CycleMetricsObserver{Metrics: m}
	obs.ObserveCycle(42_000, false)
	assert.Equal(t, uint64(1), m.Snapshot().Cycles)
}

func TestNoOpObserverDiscards(t *testing.T) {
	var o Observer = NoOpObserver{}
	assert.NotPanics(t, func() { o.ObserveCycle(1, true) })
}
