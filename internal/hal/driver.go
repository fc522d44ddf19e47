package hal

import (
	"time"

	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/ioreg"
	"github.com/evo-platform/evo-core/internal/wire"
)

// HalCommands is the unpacked form of one evo_cu_hal cycle: per-axis
// control outputs plus the role-owned DO/AO banks (spec.md 4.2).
type HalCommands struct {
	Axes      [wire.MaxAxes]wire.CuAxisCommand
	DoBank    wire.IoBank
	AoValues  [wire.MaxAO]float64
	AxisCount int
}

// HalStatus is what one driver.Cycle call reports back; the runner packs
// it into evo_hal_cu (with NC/NO inversion and analog scaling applied via
// the local IoRegistry).
type HalStatus struct {
	Axes      [wire.MaxAxes]wire.HalAxisFeedback
	DiBank    wire.IoBank
	AiValues  [wire.MaxAI]float64
	AxisCount int
}

// HalDriver is the capability every HAL backend implements (spec.md 4.2).
// Cycle MUST complete within the configured cycle time, MUST be
// allocation-free, IO-free, and lock-free, and MUST NOT return an error —
// per-axis faults surface through HalStatus.Axes[i].FaultCode instead.
type HalDriver interface {
	// Init runs once, pre-RT; it may block (hardware probing) within a
	// 30s soft budget. Failure means the process exits with diagnostics.
	Init(machine *config.MachineConfig, axes []config.AxisConfig, registry *ioreg.Registry) error

	// Cycle advances the driver by dt and returns the resulting status.
	Cycle(commands *HalCommands, dt time.Duration) HalStatus

	// Shutdown persists state and releases hardware within 1s.
	Shutdown() error

	// Name identifies the driver for --driver selection and logging.
	Name() string
}

// HotSwapper is implemented by drivers that can swap axes in/out without a
// full restart. Optional (spec.md 4.2).
type HotSwapper interface {
	SupportsHotSwap() bool
}

// Diagnoser is implemented by drivers that expose extra diagnostic fields
// beyond HalStatus, surfaced in evo_hal_mqt. Optional.
type Diagnoser interface {
	Diagnostics() map[string]any
}

// CustomCommandHandler is implemented by drivers accepting vendor-specific
// commands outside the HalCommands/HalStatus contract. Optional.
type CustomCommandHandler interface {
	HandleCustomCommand(cmd []byte) ([]byte, error)
}
