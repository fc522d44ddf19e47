// Package cu implements the Control Unit's per-cycle algorithm
// (spec.md 4.3): read HAL feedback and external commands, arbitrate
// source locks, advance six per-axis state machines, run the universal
// control engine, evaluate global safety, and assemble the evo_cu_hal
// command payload and evo_cu_mqt diagnostic snapshot.
package cu

import (
	"time"

	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/ioreg"
	"github.com/evo-platform/evo-core/internal/logging"
	"github.com/evo-platform/evo-core/internal/wire"
)

// Safety-input role names CU looks up via the I/O registry, by
// convention rather than a dedicated config field (spec.md 4.3's
// "configured safety input"; see DESIGN.md).
const (
	roleSafetyStop          = "SafetyStop"
	roleSafeReducedSpeed    = "SafeReducedSpeed"
)

// Engine is the Control Unit's cycle state: every axis's runtime, the
// global machine/safety state, source heartbeats, and the I/O registry
// used to resolve safety inputs and any axis-adjacent DO/AO roles.
type Engine struct {
	Axes     []*AxisRuntime
	Machine  *config.MachineConfig
	registry *ioreg.Registry
	logger   *logging.Logger

	heartbeats   SourceHeartbeats
	MachineState wire.MachineState
	SafetyState  wire.SafetyState

	// externalFault is set by the cycle runner for conditions outside any
	// axis's own error flags (HAL feedback missing/stale, cycle overrun;
	// spec.md 7, 8.2 #2) and cleared only by an explicit RpcCommandReset.
	externalFault wire.GlobalErrorCode

	reload *ReloadState
}

// SetExternalFault records a runner-detected global fault; Step forces
// SafetyStop every cycle until an RpcCommandReset clears it.
func (e *Engine) SetExternalFault(code wire.GlobalErrorCode) { e.externalFault = code }

// GlobalFault reports the current external fault, if any.
func (e *Engine) GlobalFault() wire.GlobalErrorCode { return e.externalFault }

// NewEngine builds per-axis runtimes from the loaded axis configs.
func NewEngine(machine *config.MachineConfig, axes []config.AxisConfig, registry *ioreg.Registry, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	defaultStop, err := machine.GlobalSafety.ParseDefaultSafeStop()
	if err != nil {
		defaultStop = wire.SafeStopSTO
	}
	runtimes := make([]*AxisRuntime, len(axes))
	for i, cfg := range axes {
		runtimes[i] = NewAxisRuntime(i, cfg, defaultStop)
	}
	return &Engine{
		Axes:         runtimes,
		Machine:      machine,
		registry:     registry,
		logger:       logger,
		MachineState: wire.MachineStarting,
		SafetyState:  wire.SafetySafe,
		reload:       newReloadState(),
	}
}

// axisInputs is one axis's resolved command for this cycle, after source
// arbitration (spec.md 4.3 step 1).
type axisInputs struct {
	source SourceID
	active bool // false => no source is commanding this axis this cycle
	enable bool
	mode   wire.OperationalMode
	out    wire.ControlOutputVector
}

// resolveInputs applies RPC-over-RE source precedence and the per-axis
// lock (spec.md 4.3's source locking: "RPC commands take precedence over
// RE for jog/manual operations").
func (e *Engine) resolveInputs(now time.Time, re wire.ReToCuPayload, hasRE bool, rpc wire.RpcToCuPayload, hasRPC bool) []axisInputs {
	inputs := make([]axisInputs, len(e.Axes))
	for i, a := range e.Axes {
		var in axisInputs
		switch {
		case hasRPC && rpc.Kind == RpcCommandJog && rpc.AxisMask.Get(i):
			in = axisInputs{source: SourceRPC, active: true, enable: true, mode: wire.OperationalManual,
				out: wire.ControlOutputVector{TargetPosition: rpc.JogTargets[i]}}
		case hasRE && re.AxisMask.Get(i):
			t := re.Targets[i]
			in = axisInputs{source: SourceRE, active: true, enable: true, mode: a.Operational,
				out: wire.ControlOutputVector{TargetPosition: t.TargetPosition, TargetVelocity: t.TargetVelocity, CalculatedTorque: t.TargetTorque}}
		default:
			in = axisInputs{source: SourceNone, active: false}
		}

		if !in.active {
			inputs[i] = in
			continue
		}
		isNop := in.mode == wire.OperationalPosition && in.out == (wire.ControlOutputVector{})
		if !AcquireLock(a, &e.heartbeats, in.source, isNop, now) {
			in.active = false
			in.enable = a.wasEnabled
		}
		inputs[i] = in
	}
	return inputs
}

// StepResult is one cycle's assembled output.
type StepResult struct {
	ToHal wire.CuToHalPayload
	ToMqt wire.CuToMqtPayload
}

// Step executes one full CU cycle (spec.md 4.3 steps 1-6) in this order:
// source arbitration, safety evaluation, the six state machines (Motion
// last, after the control step), universal control engine, safe-stop
// override, payload assembly.
func (e *Engine) Step(now time.Time, dt time.Duration, feedback wire.HalToCuPayload, re wire.ReToCuPayload, hasRE bool, rpc wire.RpcToCuPayload, hasRPC bool) StepResult {
	dtS := dt.Seconds()

	if hasRPC && rpc.Kind == RpcCommandSetMode {
		if m := wire.MachineState(int(rpc.JogTargets[0])); m <= wire.MachineSystemError {
			e.MachineState = m
		}
	}
	if hasRPC && rpc.Kind == RpcCommandReloadConfig {
		e.reload.Request()
	}
	if hasRPC && rpc.Kind == RpcCommandReset {
		e.externalFault = wire.GlobalErrNone
		for _, a := range e.Axes {
			a.PowerErr, a.MotionErr, a.CommandErr, a.GearboxErr, a.CouplingErr = 0, 0, 0, 0, 0
		}
	}

	var safetyStopIn, reducedIn bool
	if e.registry != nil {
		safetyStopIn, _ = e.registry.ReadDI(roleSafetyStop, &feedback.DiBank)
		reducedIn, _ = e.registry.ReadDI(roleSafeReducedSpeed, &feedback.DiBank)
	}

	inputs := e.resolveInputs(now, re, hasRE, rpc, hasRPC)

	e.SafetyState = EvaluateSafety(e.Axes, safetyStopIn, reducedIn)
	if e.externalFault != wire.GlobalErrNone {
		e.SafetyState = wire.SafetySafetyStop
	}
	if e.SafetyState == wire.SafetySafetyStop {
		e.MachineState = wire.MachineSystemError
		e.reload.AllowWindow()
	} else if e.MachineState == wire.MachineSystemError {
		e.MachineState = wire.MachineIdle
	}

	var result StepResult
	result.ToHal.AxisCount = uint32(len(e.Axes))

	for i, a := range e.Axes {
		if i < len(feedback.Axes[:]) {
			a.LastFeedback = feedback.Axes[i]
		}
		in := inputs[i]

		StepOperational(a, in.mode, e.MachineState)
		StepPower(a, in.enable, a.LastFeedback, e.SafetyState)

		hasMaster := a.Cfg.Coupling != nil
		masterOk := true
		var syncErr float64
		if hasMaster {
			masterIdx := -1
			for j, other := range e.Axes {
				if other.Cfg.Axis.ID == a.Cfg.Coupling.MasterAxis {
					masterIdx = j
					break
				}
			}
			masterOk = masterIdx >= 0
			if masterOk {
				syncErr = e.Axes[masterIdx].LastFeedback.ActualPosition - a.LastFeedback.ActualPosition
			}
		}
		StepCoupling(a, hasMaster, masterOk, syncErr, a.Cfg.Kinematics.InPositionWindow)
		StepGearbox(a, false)
		StepLoading(a, e.MachineState)

		var cmd wire.CuAxisCommand
		lagCritical := false
		switch {
		case e.SafetyState == wire.SafetySafetyStop:
			enable, mode, torque := ApplySafeStop(a, dtS)
			cmd = wire.CuAxisCommand{Enable: enable, OperationalMode: mode, Output: wire.ControlOutputVector{CalculatedTorque: torque, TargetVelocity: a.control.trajVelocity}}
		case a.Power == wire.PowerMotion || a.Power == wire.PowerStandby || a.Power == wire.PowerPoweringOn:
			target := in.out.TargetPosition
			if !in.active {
				target = a.LastFeedback.ActualPosition
			}
			reduced := e.SafetyState == wire.SafetySafeReducedSpeed
			newTarget := trajectoryStep(&a.control, a.Operational, wire.ControlOutputVector{TargetPosition: target, TargetVelocity: in.out.TargetVelocity}, a.LastFeedback.ActualPosition, a.Cfg.Kinematics.MaxVelocity, a.Cfg.Kinematics.MaxAcceleration, dtS, reduced, a.Cfg.Kinematics.SafeReducedSpeedLimit)
			out := PidOutput(a.Cfg.Control, &a.control, a.LastFeedback.ActualPosition, a.LastFeedback.ActualVelocity, newTarget, dtS)

			lag := newTarget - a.LastFeedback.ActualPosition
			lagCritical = EvaluateLag(a, lag)
			if lagCritical {
				e.SafetyState = wire.SafetySafetyStop
			}
			cmd = wire.CuAxisCommand{Enable: in.enable, OperationalMode: a.Operational, Output: wire.ControlOutputVector{TargetPosition: newTarget, TargetVelocity: a.control.trajVelocity, CalculatedTorque: out}}
		default:
			cmd = wire.CuAxisCommand{Enable: false, OperationalMode: a.Operational}
		}

		// Homing is driven entirely by the driver (simulation drivers start
		// referencing on an Enable rising edge while unreferenced, see
		// internal/hal/simdrv); CU only mirrors the resulting DriveReferenced
		// bit into the Motion state machine.
		homing := in.enable && a.LastFeedback.DriveStatus&wire.DriveReferenced == 0
		StepMotion(a, a.control.trajVelocity, homing, lagCritical, false)

		if i < len(result.ToHal.Axes) {
			result.ToHal.Axes[i] = cmd
		}
		if i < len(result.ToMqt.Axes) {
			result.ToMqt.Axes[i] = a.Snapshot()
		}
	}

	result.ToMqt.Machine = e.MachineState
	result.ToMqt.Safety = e.SafetyState
	return result
}
