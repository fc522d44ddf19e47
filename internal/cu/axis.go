// Package cu implements the Control Unit's deterministic 1ms cycle:
// safety evaluation, six per-axis state machines, the universal control
// engine, source locking, and diagnostic snapshotting (spec.md 4.3).
package cu

import (
	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/wire"
)

// SourceID identifies which external source currently commands an axis
// (spec.md 4.3's source locking).
type SourceID uint8

const (
	SourceNone SourceID = iota
	SourceRE
	SourceRPC
)

// notchState holds a biquad notch filter's direct-form-I delay line.
type notchState struct {
	x1, x2, y1, y2 float64
}

// controlState is the per-cycle-persistent state of the universal control
// engine (spec.md 4.3's PID + anti-windup + derivative filter + FF + DOB +
// filters), reset by ResetOnPowerOff when the axis reaches PowerOff.
type controlState struct {
	integrator   float64
	prevError    float64
	derivFilt    float64
	dobEstimate  float64
	notch        notchState
	lowPass      float64
	trajVelocity float64 // current ramped velocity setpoint
}

func (c *controlState) reset() { *c = controlState{} }

// AxisRuntime is one axis's full CU-owned mutable state: the six
// orthogonal state enums (spec.md 3.3), their error bitflags, control
// engine state, source lock, and coupling bookkeeping. Zeroed on
// power-off->power-on per spec.md 3.3.
type AxisRuntime struct {
	Index int
	Name  string
	Cfg   config.AxisConfig

	Power       wire.PowerState
	Motion      wire.MotionState
	Operational wire.OperationalMode
	Coupling    wire.CouplingState
	Gearbox     wire.GearboxState
	Loading     wire.LoadingState

	PowerErr    wire.PowerErrorFlag
	MotionErr   wire.MotionErrorFlag
	CommandErr  wire.CommandError
	GearboxErr  wire.GearboxErrorFlag
	CouplingErr wire.CouplingError

	control controlState

	LockedBy     SourceID
	coupleOffset float64
	coupled      bool

	wasEnabled bool
	Lag        float64 // |target - actual|, updated by the control engine each cycle

	// defaultSafeStop is the machine-wide fallback (machine.toml
	// global_safety.default_safe_stop) used when this axis's own
	// safe_stop.category is absent or malformed.
	defaultSafeStop wire.SafeStopCategory

	// safeStopCategory and lagPolicy are Cfg.SafeStop.Category and
	// Cfg.Control.LagPolicy resolved once at config load/reload time
	// (config.AxisConfig.validate rejects a malformed string before it
	// ever reaches here) so the 1ms cycle never re-parses a string.
	safeStopCategory wire.SafeStopCategory
	lagPolicy        wire.LagPolicy

	LastFeedback wire.HalAxisFeedback
}

// NewAxisRuntime builds a zeroed runtime for one configured axis, starting
// in PowerOff/Standstill/Uncoupled as spec.md 4.3's "Recovery ... axes
// remain PowerOff until explicitly enabled" implies for cold start too.
// defaultSafeStop is the machine-wide safe-stop category fallback.
func NewAxisRuntime(index int, cfg config.AxisConfig, defaultSafeStop wire.SafeStopCategory) *AxisRuntime {
	a := &AxisRuntime{
		Index:           index,
		Name:            cfg.Name(),
		Cfg:             cfg,
		Power:           wire.PowerOff,
		Motion:          wire.MotionStandstill,
		Operational:     wire.OperationalPosition,
		Coupling:        wire.CouplingUncoupled,
		Gearbox:         wire.GearboxNoGearbox,
		Loading:         wire.LoadingProduction,
		defaultSafeStop: defaultSafeStop,
	}
	a.refreshCachedConfig()
	return a
}

// refreshCachedConfig re-resolves safeStopCategory and lagPolicy from Cfg.
// Called once at construction and again by ReloadConfig after an atomic
// config swap, so a hot reload never leaves a stale cached enum behind.
func (a *AxisRuntime) refreshCachedConfig() {
	if cat, err := a.Cfg.SafeStop.ParseCategory(); err == nil {
		a.safeStopCategory = cat
	} else {
		a.safeStopCategory = a.defaultSafeStop
	}
	if pol, err := a.Cfg.Control.ParseLagPolicy(); err == nil {
		a.lagPolicy = pol
	} else {
		a.lagPolicy = wire.LagPolicyUnwanted
	}
}

// ResetOnPowerOff zeroes transient control/error state (spec.md 3.3: "All
// zeroed on power-off->power-on transitions"), keeping identity and config.
func (a *AxisRuntime) ResetOnPowerOff() {
	a.control.reset()
	a.PowerErr, a.MotionErr, a.CommandErr, a.GearboxErr, a.CouplingErr = 0, 0, 0, 0, 0
	a.coupled = false
	a.coupleOffset = 0
}

// AnyCritical reports whether any of this axis's error bitflags are
// classified CRITICAL (spec.md 7), forcing global SafetyStop. A lag error
// counts only under lag_policy Critical; under Unwanted it stays an
// axis-local MotionError.
func (a *AxisRuntime) AnyCritical() bool {
	motion := a.MotionErr
	if a.lagPolicy != wire.LagPolicyCritical {
		motion &^= wire.MotionErrLagError
	}
	return wire.PowerErrorSeverity(a.PowerErr) == wire.Critical ||
		wire.MotionErrorSeverity(motion) == wire.Critical ||
		wire.GearboxErrorSeverity(a.GearboxErr) == wire.Critical ||
		wire.CouplingErrorSeverity(a.CouplingErr) == wire.Critical
}

// SafeStopCategory returns this axis's configured stop behavior, resolved
// once at config load/reload time by refreshCachedConfig.
func (a *AxisRuntime) SafeStopCategory() wire.SafeStopCategory {
	return a.safeStopCategory
}

// Snapshot packs this axis's state into the evo_cu_mqt diagnostic entry
// (spec.md 6.1 #3).
func (a *AxisRuntime) Snapshot() wire.AxisStateSnapshot {
	return wire.AxisStateSnapshot{
		ActualPosition: a.LastFeedback.ActualPosition,
		ActualVelocity: a.LastFeedback.ActualVelocity,
		Lag:            a.Lag,
		Power:          a.Power,
		Motion:         a.Motion,
		Operational:    a.Operational,
		Coupling:       a.Coupling,
		Gearbox:        a.Gearbox,
		Loading:        a.Loading,
		PowerErr:       a.PowerErr,
		MotionErr:      a.MotionErr,
		CommandErr:     a.CommandErr,
		GearboxErr:     a.GearboxErr,
		CouplingErr:    a.CouplingErr,
	}
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
