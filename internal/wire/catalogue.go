package wire

// SegmentStatus classifies a catalogue entry's maturity (spec.md 6.1).
type SegmentStatus uint8

const (
	StatusActive SegmentStatus = iota
	StatusSkeleton
	StatusPlaceholder
)

// CatalogueEntry names one of the fifteen fixed segments.
type CatalogueEntry struct {
	Name   string
	Status SegmentStatus
}

// Catalogue lists all fifteen named segments (spec.md 3.2, 6.1). Only four
// are created by the processes in this repository: evo-hal writes
// evo_hal_cu and evo_hal_mqt, evo-cu writes evo_cu_hal and evo_cu_mqt. No
// process here creates the other eleven entries.
var Catalogue = []CatalogueEntry{
	{"evo_hal_cu", StatusActive},
	{"evo_cu_hal", StatusActive},
	{"evo_cu_mqt", StatusSkeleton},
	{"evo_hal_mqt", StatusSkeleton},
	{"evo_re_cu", StatusSkeleton},
	{"evo_re_hal", StatusSkeleton},
	{"evo_re_mqt", StatusSkeleton},
	{"evo_re_rpc", StatusSkeleton},
	{"evo_rpc_cu", StatusSkeleton},
	{"evo_rpc_hal", StatusSkeleton},
	{"evo_rpc_re", StatusSkeleton},
	{"evo_cu_re", StatusPlaceholder},
	{"evo_cu_rpc", StatusPlaceholder},
	{"evo_hal_rpc", StatusPlaceholder},
	{"evo_hal_re", StatusPlaceholder},
}

// HeartbeatStaleN returns the configured-default staleness window for a
// segment name: N=3 for the RT pair (HAL<->CU), N=1000 otherwise
// (spec.md 6.1).
func HeartbeatStaleN(name string) int {
	switch name {
	case "evo_hal_cu", "evo_cu_hal":
		return 3
	default:
		return 1000
	}
}
