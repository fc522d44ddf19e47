package cu

import (
	"math"

	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/wire"
)

// trajectoryStep ramps the current velocity setpoint toward the velocity
// implied by target (for Position/Manual modes) or the commanded velocity
// directly (Velocity mode), honoring maxVel/maxAccel and, under
// SafeReducedSpeed, the axis's configured reduced-speed ceiling
// (spec.md 4.3's trajectory generation step).
func trajectoryStep(cs *controlState, mode wire.OperationalMode, out wire.ControlOutputVector, actual, maxVel, maxAccel float64, dtS float64, reduced bool, reducedLimit float64) (targetPos float64) {
	vel := cs.trajVelocity
	var desiredVel float64
	switch mode {
	case wire.OperationalVelocity:
		desiredVel = out.TargetVelocity
	default:
		// Position/Manual/Test: derive a velocity request from position error,
		// clamped by maxVel, so the ramp below still governs acceleration.
		posErr := out.TargetPosition - actual
		desiredVel = clamp(posErr/maxDt(dtS), -maxVel, maxVel)
	}
	if reduced && reducedLimit > 0 {
		desiredVel = clamp(desiredVel, -reducedLimit, reducedLimit)
	}
	desiredVel = clamp(desiredVel, -maxVel, maxVel)

	maxStep := maxAccel * dtS
	if maxStep <= 0 {
		vel = desiredVel
	} else {
		diff := desiredVel - vel
		if diff > maxStep {
			diff = maxStep
		} else if diff < -maxStep {
			diff = -maxStep
		}
		vel += diff
	}
	cs.trajVelocity = vel

	if mode == wire.OperationalVelocity {
		return actual + vel*dtS
	}
	return actual + vel*dtS
}

func maxDt(dtS float64) float64 {
	if dtS <= 0 {
		return 1
	}
	return dtS
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// biquadNotch applies a standard RBJ-cookbook notch filter at f0 with
// bandwidth bw over sample period dtS, maintaining its own delay line in
// cs.notch (spec.md 4.3's "optional biquad notch filter at f_notch").
func biquadNotch(ns *notchState, x, f0, bw, dtS float64) float64 {
	if f0 <= 0 || dtS <= 0 {
		return x
	}
	fs := 1.0 / dtS
	w0 := 2 * math.Pi * f0 / fs
	q := f0 / math.Max(bw, 1e-6)
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	b0, b1, b2 := 1.0, -2*cosw0, 1.0
	a0, a1, a2 := 1+alpha, -2*cosw0, 1-alpha

	y := (b0/a0)*x + (b1/a0)*ns.x1 + (b2/a0)*ns.x2 - (a1/a0)*ns.y1 - (a2/a0)*ns.y2
	ns.x2, ns.x1 = ns.x1, x
	ns.y2, ns.y1 = ns.y1, y
	return y
}

// firstOrderLowPass applies a one-pole low-pass with cutoff flp Hz
// (spec.md 4.3's "optional first-order low-pass at flp").
func firstOrderLowPass(state *float64, x, flp, dtS float64) float64 {
	if flp <= 0 || dtS <= 0 {
		*state = x
		return x
	}
	tau := 1 / (2 * math.Pi * flp)
	alpha := dtS / (tau + dtS)
	*state += alpha * (x - *state)
	return *state
}

// disturbanceObserver estimates a velocity-domain disturbance from the
// commanded output and measured velocity/acceleration, per spec.md 4.3's
// "disturbance observer (inertia jn, damping bn, gain gdob)": the
// estimate is a low-pass of the mismatch between the nominal plant's
// expected output and the commanded output, fed back as a compensating
// addition to the control output.
func disturbanceObserver(dob *float64, command, velocity, accel, jn, bn, gdob, dtS float64) float64 {
	if gdob <= 0 {
		*dob = 0
		return 0
	}
	nominalOutput := jn*accel + bn*velocity
	mismatch := nominalOutput - command
	alpha := clamp(gdob*dtS, 0, 1)
	*dob += alpha * (mismatch - *dob)
	return *dob
}

// PidOutput computes one cycle of the universal control engine for a
// single axis toward the targetPos trajectoryStep produced: PID with
// back-calculation anti-windup and
// a filtered derivative, velocity/acceleration feedforward, an optional
// disturbance observer, and optional notch/low-pass post-filters, clamped
// to +-out_max (spec.md 4.3 step 5).
func PidOutput(ctrl config.ControlConfig, cs *controlState, actual, actualVel float64, targetPos float64, dtS float64) (output float64) {
	err := targetPos - actual
	p := ctrl.Kp * err

	tf := ctrl.Tf
	if tf <= 0 {
		tf = dtS
	}
	rawDeriv := (err - cs.prevError) / maxDt(dtS)
	alpha := dtS / (tf + dtS)
	cs.derivFilt += alpha * (rawDeriv - cs.derivFilt)
	d := ctrl.Kd * cs.derivFilt
	cs.prevError = err

	i := cs.integrator

	velRef := (targetPos - actual) / maxDt(dtS)
	accelRef := velRef - cs.trajVelocity
	ff := ctrl.Kvff*velRef + ctrl.Kaff*accelRef + math.Copysign(ctrl.Friction, velRef)
	if velRef == 0 {
		ff = ctrl.Kvff*velRef + ctrl.Kaff*accelRef
	}

	dobOut := disturbanceObserver(&cs.dobEstimate, p+i+d+ff, actualVel, accelRef, ctrl.Jn, ctrl.Bn, ctrl.Gdob, dtS)

	unclamped := p + i + d + ff + dobOut
	out := unclamped
	if ctrl.OutMax > 0 {
		out = clamp(unclamped, -ctrl.OutMax, ctrl.OutMax)
	}

	tt := ctrl.Tt
	if tt <= 0 {
		tt = 1
	}
	cs.integrator += ctrl.Ki*err*dtS + (out-unclamped)/tt*dtS

	if ctrl.FNotch > 0 {
		out = biquadNotch(&cs.notch, out, ctrl.FNotch, ctrl.BwNotch, dtS)
	}
	if ctrl.Flp > 0 {
		out = firstOrderLowPass(&cs.lowPass, out, ctrl.Flp, dtS)
	}
	if ctrl.OutMax > 0 {
		out = clamp(out, -ctrl.OutMax, ctrl.OutMax)
	}
	return out
}
