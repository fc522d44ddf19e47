package metrics

// Observer receives cycle events as they happen, for callers that want
// push-based telemetry (e.g. forwarding to evo_*_mqt) instead of polling
// Snapshot. Mirrors the teacher's Observer/NoOpObserver split so a cycle
// runner can take an Observer unconditionally and pay nothing when no one
// is watching.
type Observer interface {
	ObserveCycle(durationNs uint64, overran bool)
}

// NoOpObserver discards every event.
type NoOpObserver struct{}

func (NoOpObserver) ObserveCycle(uint64, bool) {}

// CycleMetricsObserver feeds observed cycles into a CycleMetrics.
type CycleMetricsObserver struct {
	Metrics *CycleMetrics
}

func (o CycleMetricsObserver) ObserveCycle(durationNs uint64, _ bool) {
	o.Metrics.RecordCycle(durationNs)
}

var (
	_ Observer = NoOpObserver{}
	_ Observer = CycleMetricsObserver{}
)
