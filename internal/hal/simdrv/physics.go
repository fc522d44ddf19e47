package simdrv

import (
	"math"

	"github.com/evo-platform/evo-core/internal/wire"
)

// Physics holds one axis's simulated kinematic state across cycles.
type Physics struct {
	Actual   float64
	Velocity float64
	Lag      float64
	Fault    wire.FaultCode
}

// Step advances Positioning/Simple physics by one cycle toward target,
// implementing spec.md 4.2's exact formulas:
//
//	err = target - actual
//	desired_v = sign(err) * min(|err|/dt, max_velocity)
//	new_v = current_v + clamp(desired_v - current_v, -max_accel*dt, +max_accel*dt)
//	actual += new_v * dt
//	lag = |target - actual|
func (p *Physics) Step(target, dt, maxVelocity, maxAcceleration, lagLimit float64) {
	if dt <= 0 {
		return
	}
	err := target - p.Actual
	desiredV := math.Copysign(math.Min(math.Abs(err)/dt, maxVelocity), err)
	if err == 0 {
		desiredV = 0
	}

	maxDelta := maxAcceleration * dt
	delta := desiredV - p.Velocity
	if delta > maxDelta {
		delta = maxDelta
	} else if delta < -maxDelta {
		delta = -maxDelta
	}
	p.Velocity += delta
	p.Actual += p.Velocity * dt
	p.Lag = math.Abs(target - p.Actual)

	p.Fault = wire.FaultNone
	if lagLimit > 0 && p.Lag > lagLimit {
		p.Fault = wire.FaultLagError
	}
}

// Jump implements the Simple axis type: no kinematics, instantaneous move.
func (p *Physics) Jump(target, dt float64) {
	if dt > 0 {
		p.Velocity = (target - p.Actual) / dt
	}
	p.Actual = target
	p.Lag = 0
	p.Fault = wire.FaultNone
}

// Integrate implements the Measurement axis type: accumulates position
// from a commanded velocity with no drive output and no lag monitoring.
func (p *Physics) Integrate(velocity, dt float64) {
	p.Velocity = velocity
	p.Actual += velocity * dt
	p.Lag = 0
	p.Fault = wire.FaultNone
}

// Follow implements the Slave axis type: tracks master's actual position
// plus a coupling offset captured once at couple-time.
func (p *Physics) Follow(masterActual, offset, dt float64) {
	prev := p.Actual
	p.Actual = masterActual + offset
	if dt > 0 {
		p.Velocity = (p.Actual - prev) / dt
	}
	p.Lag = 0
	p.Fault = wire.FaultNone
}
