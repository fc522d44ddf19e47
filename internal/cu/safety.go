package cu

import "github.com/evo-platform/evo-core/internal/wire"

// EvaluateSafety derives the global SafetyState for this cycle
// (spec.md 4.3): any CRITICAL per-axis error or an asserted safety-stop
// input forces SafetyStop; an asserted reduced-speed input (with no
// SafetyStop condition) yields SafeReducedSpeed; otherwise Safe.
func EvaluateSafety(axes []*AxisRuntime, safetyStopAsserted, reducedSpeedAsserted bool) wire.SafetyState {
	if safetyStopAsserted {
		return wire.SafetySafetyStop
	}
	for _, a := range axes {
		if a.AnyCritical() {
			return wire.SafetySafetyStop
		}
	}
	if reducedSpeedAsserted {
		return wire.SafetySafeReducedSpeed
	}
	return wire.SafetySafe
}

// ApplySafeStop executes one axis's configured stop category while the
// machine is in SafetyStop (spec.md 7): STO removes drive enable
// immediately, SS1 ramps the trajectory to zero before disabling, SS2
// ramps to zero and then holds at Ss2HoldingTorque instead of disabling.
// Returns the enable bit and torque-mode output HAL should receive.
func ApplySafeStop(a *AxisRuntime, dtS float64) (enable bool, mode wire.OperationalMode, torqueOut float64) {
	switch a.SafeStopCategory() {
	case wire.SafeStopSTO:
		a.control.trajVelocity = 0
		return false, wire.OperationalTorque, 0
	case wire.SafeStopSS1:
		maxDecel := a.Cfg.SafeStop.MaxDecelSafe
		if maxDecel <= 0 {
			maxDecel = a.Cfg.Kinematics.MaxAcceleration
		}
		step := maxDecel * dtS
		if absF(a.control.trajVelocity) <= step {
			a.control.trajVelocity = 0
			return false, wire.OperationalTorque, 0
		}
		if a.control.trajVelocity > 0 {
			a.control.trajVelocity -= step
		} else {
			a.control.trajVelocity += step
		}
		return true, wire.OperationalVelocity, a.control.trajVelocity
	case wire.SafeStopSS2:
		maxDecel := a.Cfg.SafeStop.MaxDecelSafe
		if maxDecel <= 0 {
			maxDecel = a.Cfg.Kinematics.MaxAcceleration
		}
		step := maxDecel * dtS
		if absF(a.control.trajVelocity) > step {
			if a.control.trajVelocity > 0 {
				a.control.trajVelocity -= step
			} else {
				a.control.trajVelocity += step
			}
			return true, wire.OperationalVelocity, a.control.trajVelocity
		}
		a.control.trajVelocity = 0
		return true, wire.OperationalTorque, a.Cfg.SafeStop.Ss2HoldingTorque
	default:
		return false, wire.OperationalTorque, 0
	}
}

// EvaluateLag classifies this cycle's position error against the axis's
// configured lag_error_limit under its lag_policy (spec.md 4.2, 8.1):
// Desired suppresses it entirely, Neutral only records the magnitude,
// Unwanted raises an axis-local MotionErrLagError, and Critical also
// reports true so the caller forces a global SafetyStop.
func EvaluateLag(a *AxisRuntime, lag float64) (criticalGlobal bool) {
	a.Lag = lag
	limit := a.Cfg.Control.LagErrorLimit
	if limit <= 0 {
		return false
	}
	policy := a.lagPolicy
	if absF(lag) <= limit {
		a.MotionErr.Clear(wire.MotionErrLagError)
		return false
	}
	switch policy {
	case wire.LagPolicyDesired:
		return false
	case wire.LagPolicyNeutral:
		return false
	case wire.LagPolicyUnwanted:
		a.MotionErr.Set(wire.MotionErrLagError)
		return false
	case wire.LagPolicyCritical:
		a.MotionErr.Set(wire.MotionErrLagError)
		return true
	default:
		return false
	}
}
