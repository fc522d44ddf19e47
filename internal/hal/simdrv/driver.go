// Package simdrv implements evo-core's software simulation HalDriver: a
// kinematic model per axis, linked DO->DI delay chains, simulated analog
// inputs smoothed by a moving average (curve scaling is applied afterwards
// by the HAL runner through the I/O registry), a referencing (homing) state machine, and state persistence
// across restarts (spec.md 4.2).
package simdrv

import (
	"math"
	"time"

	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/hal"
	"github.com/evo-platform/evo-core/internal/ioreg"
	"github.com/evo-platform/evo-core/internal/wire"
)

func init() {
	hal.RegisterFactory("simulation", func() hal.HalDriver { return New() })
}

// zeroSpeedEpsilon below which ActualVelocity is reported as DriveZeroSpeed.
const zeroSpeedEpsilon = 1e-6

// axisSim is one axis's full simulated state: static config plus the
// per-cycle mutable kinematic and referencing state.
type axisSim struct {
	cfg  config.AxisConfig
	kind wire.AxisKind
	name string

	physics    Physics
	referencer *Referencer

	masterIdx    int // index into Driver.axes for Slave axes, -1 otherwise
	coupled      bool
	coupleOffset float64

	wasEnabled bool
}

// aiChannel drives one simulated analog-input reading through its moving
// average and into the raw (pre-curve) value the registry will scale.
type aiChannel struct {
	index   int
	point   ioreg.IoPoint
	average *MovingAverage
	phase   float64
}

// Driver is evo-core's simulation HalDriver.
type Driver struct {
	axes       []axisSim
	aiChannels []aiChannel
	linkQueue  *LinkQueue
	registry   *ioreg.Registry

	statePath string
	tick      uint64

	prevActual []float64 // scratch buffer, reused every cycle (no per-cycle allocation)
}

// New returns an uninitialized simulation driver.
func New() *Driver { return &Driver{statePath: DefaultStatePath} }

// WithStatePath overrides the persisted-state file path (default
// DefaultStatePath); used by tests. cmd/evo-hal does not call it, so the
// binary always uses DefaultStatePath.
func (d *Driver) WithStatePath(path string) *Driver {
	d.statePath = path
	return d
}

// Name implements hal.HalDriver.
func (d *Driver) Name() string { return "simulation" }

// Init implements hal.HalDriver: builds per-axis physics/referencing state
// from config, restores persisted positions, and builds the DO->DI link
// queue and AI channel set from the shared registry (spec.md 4.2, 6.4).
func (d *Driver) Init(machine *config.MachineConfig, axes []config.AxisConfig, registry *ioreg.Registry) error {
	d.registry = registry
	saved, err := LoadState(d.statePath)
	if err != nil {
		return err
	}
	savedByName := make(map[string]AxisState, len(saved.Axes))
	for _, a := range saved.Axes {
		savedByName[a.Name] = a
	}

	axisIndexByID := make(map[int]int, len(axes))
	for i, cfg := range axes {
		axisIndexByID[cfg.Axis.ID] = i
	}

	d.axes = make([]axisSim, len(axes))
	for i, cfg := range axes {
		kind, err := cfg.Axis.ParseType()
		if err != nil {
			return err
		}
		mode, err := cfg.Homing.ParseMethod()
		if err != nil {
			return err
		}
		dir, err := cfg.Homing.ParseApproachDirection()
		if err != nil {
			return err
		}
		timeout := time.Duration(cfg.Homing.Timeout * float64(time.Second))
		ref := NewReferencer(mode, dir, cfg.Homing.Speed, cfg.Homing.SwitchPosition, cfg.Homing.IndexPosition, timeout)

		masterIdx := -1
		if cfg.Coupling != nil {
			if idx, ok := axisIndexByID[cfg.Coupling.MasterAxis]; ok {
				masterIdx = idx
			}
		}

		sim := axisSim{cfg: cfg, kind: kind, name: cfg.Name(), referencer: ref, masterIdx: masterIdx}

		if st, ok := savedByName[sim.name]; ok {
			req, err := cfg.Homing.ParseReferencingRequired()
			if err != nil {
				return err
			}
			sim.physics.Actual = st.Position
			switch req {
			case config.ReferencingYes:
				ref.State = Unreferenced
			case config.ReferencingNo:
				ref.State = Referenced
			default: // Perhaps
				if st.Referenced {
					ref.State = Referenced
				} else {
					ref.State = Unreferenced
				}
			}
			if mode == wire.RefModeNo {
				ref.State = Referenced
			}
		}

		d.axes[i] = sim
	}
	d.prevActual = make([]float64, len(d.axes))

	if registry != nil {
		d.linkQueue = NewLinkQueue(registry.DoLinks(), defaultCyclePeriodS)
		for _, pp := range registry.Points(ioreg.TypeAI) {
			if !pp.Point.Sim {
				continue
			}
			d.aiChannels = append(d.aiChannels, aiChannel{
				index:   pp.Index,
				point:   pp.Point,
				average: NewMovingAverage(pp.Point.AverageSamples),
				phase:   float64(pp.Index),
			})
		}
	}
	return nil
}

// defaultCyclePeriodS assumes the standard 1ms RT cycle when converting
// link delays to ticks; Cycle's actual dt is used for physics, but the
// link queue's tick bookkeeping is built once at Init time.
const defaultCyclePeriodS = 0.001

// Cycle implements hal.HalDriver. Allocation-free: all scratch state
// (d.prevActual, per-axis structs) is sized once in Init.
func (d *Driver) Cycle(commands *hal.HalCommands, dt time.Duration) hal.HalStatus {
	d.tick++
	dtS := dt.Seconds()

	var status hal.HalStatus
	status.AxisCount = len(d.axes)

	for i := range d.axes {
		d.prevActual[i] = d.axes[i].physics.Actual
	}

	for i := range d.axes {
		a := &d.axes[i]
		var cmd wire.CuAxisCommand
		if i < commands.AxisCount && i < len(commands.Axes) {
			cmd = commands.Axes[i]
		}
		enabled := cmd.Enable
		risingEdge := enabled && !a.wasEnabled
		a.wasEnabled = enabled

		d.stepAxis(a, i, &cmd, enabled, risingEdge, dtS, dt)
		d.packAxisFeedback(&status.Axes[i], a, enabled)
	}

	if d.linkQueue != nil {
		d.linkQueue.Observe(d.tick, &commands.DoBank, &status.DiBank)
	}

	for _, ch := range d.aiChannels {
		raw := ch.point.Min + (ch.point.Max-ch.point.Min)*0.5*(1+math.Sin(float64(d.tick)*0.005+ch.phase))
		status.AiValues[ch.index] = ch.average.Push(raw)
	}

	return status
}

// stepAxis advances one axis's physics by one cycle, implementing the
// per-kind models of spec.md 4.2 plus the referencing sequence for
// Positioning axes. Homing starts on an Enable rising edge while
// Unreferenced: the wire contract has no dedicated "home" command, so
// enabling an unreferenced, homing-capable axis is simulation's trigger
// for an automatic homing run (see DESIGN.md).
func (d *Driver) stepAxis(a *axisSim, index int, cmd *wire.CuAxisCommand, enabled, risingEdge bool, dtS float64, dt time.Duration) {
	switch a.kind {
	case wire.AxisKindSimple:
		if enabled {
			a.physics.Jump(cmd.Output.TargetPosition, dtS)
		}
		return
	case wire.AxisKindMeasurement:
		a.physics.Integrate(cmd.Output.TargetVelocity, dtS)
		return
	case wire.AxisKindSlave:
		if !a.coupled {
			a.coupleOffset = cmd.Output.TorqueOffset
			a.coupled = true
		}
		masterActual := 0.0
		if a.masterIdx >= 0 && a.masterIdx < len(d.prevActual) {
			masterActual = d.prevActual[a.masterIdx]
		}
		a.physics.Follow(masterActual, a.coupleOffset, dtS)
		return
	}

	// wire.AxisKindPositioning.
	if a.referencer.Mode != wire.RefModeNo && a.referencer.State == Unreferenced && risingEdge {
		a.referencer.Start()
	}
	if a.referencer.State != Unreferenced && a.referencer.State != Referenced && a.referencer.State != RefError {
		velCmd := a.referencer.Step(a.physics.Actual, dt)
		target := a.physics.Actual + velCmd*dtS
		a.physics.Step(target, dtS, math.Abs(a.referencer.Speed), a.cfg.Kinematics.MaxAcceleration, 0)
		return
	}
	if !enabled {
		return
	}

	target := cmd.Output.TargetPosition
	switch cmd.OperationalMode {
	case wire.OperationalVelocity:
		target = a.physics.Actual + cmd.Output.TargetVelocity*dtS
	case wire.OperationalTorque:
		vel := clampAbs(cmd.Output.CalculatedTorque, a.cfg.Control.OutMax) / maxFloat(a.cfg.Control.OutMax, 1) * a.cfg.Kinematics.MaxVelocity
		target = a.physics.Actual + vel*dtS
	}
	a.physics.Step(target, dtS, a.cfg.Kinematics.MaxVelocity, a.cfg.Kinematics.MaxAcceleration, a.cfg.Control.LagErrorLimit)
}

func clampAbs(v, limit float64) float64 {
	if limit <= 0 {
		return v
	}
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// packAxisFeedback assembles one axis's HalAxisFeedback from its simulated
// physics and referencing state.
func (d *Driver) packAxisFeedback(fb *wire.HalAxisFeedback, a *axisSim, enabled bool) {
	fb.ActualPosition = a.physics.Actual
	fb.ActualVelocity = a.physics.Velocity
	fb.TorqueEstimate = 0

	fault := a.physics.Fault
	if a.kind == wire.AxisKindPositioning {
		if rf := a.referencer.FaultCode(); rf != wire.FaultNone {
			fault = rf
		}
	}

	var ds wire.DriveStatus
	if enabled {
		ds |= wire.DriveEnabled
	}
	if fault == wire.FaultNone {
		ds |= wire.DriveReady
	} else {
		ds |= wire.DriveFault
	}
	if a.referencer.State == Referenced {
		ds |= wire.DriveReferenced
	}
	if math.Abs(a.physics.Velocity) < zeroSpeedEpsilon {
		ds |= wire.DriveZeroSpeed
	}

	fb.DriveStatus = ds
	fb.FaultCode = fault
}

// Shutdown implements hal.HalDriver: persists every axis's
// {name, position, referenced} (spec.md 6.4).
func (d *Driver) Shutdown() error {
	state := SavedState{Axes: make([]AxisState, len(d.axes))}
	for i, a := range d.axes {
		state.Axes[i] = AxisState{
			Name:       a.name,
			Position:   a.physics.Actual,
			Referenced: a.referencer.State == Referenced,
		}
	}
	return SaveState(d.statePath, state, 0)
}

// Diagnostics implements hal.Diagnoser, exposing per-axis referencing and
// coupling state beyond the wire-level HalStatus.
func (d *Driver) Diagnostics() map[string]any {
	out := make(map[string]any, len(d.axes))
	for _, a := range d.axes {
		out[a.name] = map[string]any{
			"kind":       a.kind,
			"ref_state":  a.referencer.State,
			"lag":        a.physics.Lag,
			"coupled":    a.coupled,
		}
	}
	return out
}

var _ hal.HalDriver = (*Driver)(nil)
var _ hal.Diagnoser = (*Driver)(nil)
