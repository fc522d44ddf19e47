package cu

import "github.com/evo-platform/evo-core/internal/wire"

// Six per-axis state machines advanced in a fixed order every cycle
// (spec.md 3.3, 4.3 step 2): Operational, Power, Coupling, Gearbox,
// Loading, and Motion last, after the control step. Each is an exhaustive switch over the current state,
// grounded on the teacher's per-tag TagState switch in
// internal/queue/runner.go's processRequests/handleCompletion.

// StepPower advances the Power state machine from the requested Enable
// bit, HAL feedback, and the global safety state. A SafetyStop forces
// every axis toward PowerOff via PowerPoweringOff regardless of command.
func StepPower(a *AxisRuntime, enable bool, fb wire.HalAxisFeedback, safety wire.SafetyState) {
	if fb.DriveStatus&wire.DriveFault != 0 {
		if a.Power != wire.PowerError {
			a.Power = wire.PowerError
		}
		return
	}

	switch a.Power {
	case wire.PowerOff:
		if safety != wire.SafetySafetyStop && enable {
			a.Power = wire.PowerPoweringOn
		}
	case wire.PowerPoweringOn:
		switch {
		case safety == wire.SafetySafetyStop:
			a.Power = wire.PowerPoweringOff
		case !enable:
			a.Power = wire.PowerPoweringOff
		case fb.DriveStatus&wire.DriveEnabled != 0:
			a.Power = wire.PowerStandby
		}
	case wire.PowerStandby:
		switch {
		case safety == wire.SafetySafetyStop || !enable:
			a.Power = wire.PowerPoweringOff
		case fb.DriveStatus&wire.DriveZeroSpeed == 0:
			a.Power = wire.PowerMotion
		}
	case wire.PowerMotion:
		switch {
		case safety == wire.SafetySafetyStop || !enable:
			a.Power = wire.PowerPoweringOff
		case fb.DriveStatus&wire.DriveZeroSpeed != 0:
			a.Power = wire.PowerStandby
		}
	case wire.PowerPoweringOff:
		if fb.DriveStatus&wire.DriveEnabled == 0 {
			a.Power = wire.PowerOff
			a.ResetOnPowerOff()
		}
	case wire.PowerNoBrake:
		if safety == wire.SafetySafetyStop || !enable {
			a.Power = wire.PowerPoweringOff
		}
	case wire.PowerError:
		if !enable && fb.DriveStatus&wire.DriveFault == 0 {
			a.Power = wire.PowerOff
			a.ResetOnPowerOff()
		}
	default:
		a.Power = wire.PowerError
	}
}

// StepMotion advances the Motion state machine from the trajectory
// velocity the control engine just computed, a homing request, and the
// lag policy's verdict for this cycle.
func StepMotion(a *AxisRuntime, trajVelocity float64, homing bool, lagExceeded bool, estop bool) {
	if estop {
		a.Motion = wire.MotionEmergencyStop
		return
	}
	if a.Power != wire.PowerMotion && a.Power != wire.PowerStandby {
		a.Motion = wire.MotionStandstill
		return
	}
	if lagExceeded {
		a.Motion = wire.MotionError
		return
	}
	if homing {
		a.Motion = wire.MotionHoming
		return
	}

	const zeroVel = 1e-6
	switch a.Motion {
	case wire.MotionStandstill, wire.MotionHoming, wire.MotionError, wire.MotionEmergencyStop:
		if absF(trajVelocity) > zeroVel {
			a.Motion = wire.MotionAccelerating
		} else {
			a.Motion = wire.MotionStandstill
		}
	case wire.MotionAccelerating:
		switch {
		case absF(trajVelocity) <= zeroVel:
			a.Motion = wire.MotionStopping
		default:
			a.Motion = wire.MotionConstantVelocity
		}
	case wire.MotionConstantVelocity:
		if absF(trajVelocity) <= zeroVel {
			a.Motion = wire.MotionDecelerating
		}
	case wire.MotionDecelerating, wire.MotionStopping:
		if absF(trajVelocity) <= zeroVel {
			a.Motion = wire.MotionStandstill
		} else {
			a.Motion = wire.MotionAccelerating
		}
	default:
		a.Motion = wire.MotionStandstill
	}
}

// StepOperational mirrors the commanded operational mode directly: CU
// does not override it, but it is only honored once Power reaches
// PowerMotion/PowerStandby (spec.md 3.3: OperationalMode selects which
// ControlOutputVector field a driver honors).
func StepOperational(a *AxisRuntime, mode wire.OperationalMode, machineState wire.MachineState) {
	if mode == wire.OperationalManual && machineState != wire.MachineManual {
		// Manual jog requires MachineState==Manual (spec.md 4.3); otherwise
		// fall back to Position rather than accept an unauthorized mode.
		a.Operational = wire.OperationalPosition
		return
	}
	a.Operational = mode
}

// StepCoupling advances the Coupling state machine for a Slave axis given
// its configured master's coupling state and the sync error magnitude; a
// non-Slave axis with no coupling config stays Uncoupled, one acting as a
// master for others is driven externally to CouplingMaster by the engine.
func StepCoupling(a *AxisRuntime, hasMaster bool, masterOk bool, syncError float64, syncTolerance float64) {
	if !hasMaster {
		if a.Coupling == wire.CouplingCoupling || a.Coupling == wire.CouplingSlaveCoupled ||
			a.Coupling == wire.CouplingWaitingSync || a.Coupling == wire.CouplingSynchronized ||
			a.Coupling == wire.CouplingSyncLost || a.Coupling == wire.CouplingSlaveModulated {
			a.Coupling = wire.CouplingUncoupled
		}
		return
	}
	if !masterOk {
		a.Coupling = wire.CouplingSyncLost
		a.CouplingErr |= wire.CouplingErrMasterMissing
		return
	}
	a.CouplingErr &^= wire.CouplingErrMasterMissing

	inSync := syncTolerance <= 0 || absF(syncError) <= syncTolerance
	switch a.Coupling {
	case wire.CouplingUncoupled, wire.CouplingSyncLost:
		a.Coupling = wire.CouplingCoupling
	case wire.CouplingCoupling:
		if inSync {
			a.Coupling = wire.CouplingWaitingSync
		}
	case wire.CouplingWaitingSync:
		if inSync {
			a.Coupling = wire.CouplingSynchronized
		}
	case wire.CouplingSynchronized, wire.CouplingSlaveCoupled:
		if inSync {
			a.Coupling = wire.CouplingSlaveCoupled
		} else {
			a.Coupling = wire.CouplingSyncLost
			a.CouplingErr |= wire.CouplingErrSyncLost
		}
	default:
		a.Coupling = wire.CouplingCoupling
	}
}

// StepGearbox holds the Gearbox state machine at its configured resting
// state. The wire protocol carries no per-cycle gear-selection command
// (CuAxisCommand has no gearbox field; see DESIGN.md), so axes without a
// gearbox stay NoGearbox and axes with one idle in Neutral: shifting is
// a real-driver concern this simulation-era CU does not yet drive.
func StepGearbox(a *AxisRuntime, hasGearbox bool) {
	if !hasGearbox {
		a.Gearbox = wire.GearboxNoGearbox
		return
	}
	if a.Gearbox == wire.GearboxNoGearbox || a.Gearbox == wire.GearboxUnknown {
		a.Gearbox = wire.GearboxNeutral
	}
}

// StepLoading derives the Loading permission state from Power and the
// global MachineState: production motion blocks loading, MachineService
// with the axis powered down allows it, and Manual mode allows operator-
// supervised loading (spec.md 3.3's LoadingState).
func StepLoading(a *AxisRuntime, machineState wire.MachineState) {
	switch {
	case a.Power == wire.PowerMotion || a.Power == wire.PowerStandby:
		a.Loading = wire.LoadingProduction
	case machineState == wire.MachineService && a.Power == wire.PowerOff:
		a.Loading = wire.LoadingReadyForLoading
	case machineState == wire.MachineManual:
		a.Loading = wire.LoadingLoadingManualAllowed
	case a.Power == wire.PowerPoweringOn || a.Power == wire.PowerPoweringOff:
		a.Loading = wire.LoadingLoadingBlocked
	default:
		a.Loading = wire.LoadingProduction
	}
}
