package cu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evo-platform/evo-core/internal/wire"
)

func TestEvaluateSafetySafeWhenNothingAsserted(t *testing.T) {
	axes := []*AxisRuntime{testAxis()}
	assert.Equal(t, wire.SafetySafe, EvaluateSafety(axes, false, false))
}

func TestEvaluateSafetyReducedSpeedInput(t *testing.T) {
	axes := []*AxisRuntime{testAxis()}
	assert.Equal(t, wire.SafetySafeReducedSpeed, EvaluateSafety(axes, false, true))
}

func TestEvaluateSafetyStopInputWins(t *testing.T) {
	axes := []*AxisRuntime{testAxis()}
	assert.Equal(t, wire.SafetySafetyStop, EvaluateSafety(axes, true, true))
}

func TestEvaluateSafetyCriticalAxisErrorForcesStop(t *testing.T) {
	a := testAxis()
	a.PowerErr = wire.PowerErrDriveFault
	axes := []*AxisRuntime{a}
	assert.Equal(t, wire.SafetySafetyStop, EvaluateSafety(axes, false, false))
}

func TestApplySafeStopSTOImmediatelyDisables(t *testing.T) {
	a := testAxis()
	a.control.trajVelocity = 50
	enable, mode, torque := ApplySafeStop(a, 0.001)
	assert.False(t, enable)
	assert.Equal(t, wire.OperationalTorque, mode)
	assert.Equal(t, 0.0, torque)
}

func TestApplySafeStopSS1RampsThenDisables(t *testing.T) {
	a := testAxis()
	a.Cfg.SafeStop.Category = "SS1"
	a.refreshCachedConfig()
	a.Cfg.SafeStop.MaxDecelSafe = 1000
	a.control.trajVelocity = 1 // within one 1000*0.001=1.0 decel step

	enable, mode, _ := ApplySafeStop(a, 0.001)
	assert.False(t, enable, "velocity within one decel step should disable immediately")
	assert.Equal(t, wire.OperationalTorque, mode)
	assert.Equal(t, 0.0, a.control.trajVelocity)
}

func TestApplySafeStopSS1RampsGraduallyForLargeVelocity(t *testing.T) {
	a := testAxis()
	a.Cfg.SafeStop.Category = "SS1"
	a.refreshCachedConfig()
	a.Cfg.SafeStop.MaxDecelSafe = 10
	a.control.trajVelocity = 100

	enable, mode, out := ApplySafeStop(a, 0.001)
	assert.True(t, enable)
	assert.Equal(t, wire.OperationalVelocity, mode)
	assert.InDelta(t, 99.99, out, 1e-9)
}

func TestApplySafeStopSS2HoldsTorqueAfterRamp(t *testing.T) {
	a := testAxis()
	a.Cfg.SafeStop.Category = "SS2"
	a.refreshCachedConfig()
	a.Cfg.SafeStop.MaxDecelSafe = 1000
	a.Cfg.SafeStop.Ss2HoldingTorque = 3.5
	a.control.trajVelocity = 0.5

	enable, mode, out := ApplySafeStop(a, 0.001)
	assert.True(t, enable)
	assert.Equal(t, wire.OperationalTorque, mode)
	assert.Equal(t, 3.5, out)
}

func TestEvaluateLagPolicies(t *testing.T) {
	a := testAxis()
	a.Cfg.Control.LagErrorLimit = 1.0

	a.Cfg.Control.LagPolicy = "Unwanted"
	a.refreshCachedConfig()
	assert.False(t, EvaluateLag(a, 2.0))
	assert.NotZero(t, a.MotionErr&wire.MotionErrLagError)

	a.MotionErr = 0
	a.Cfg.Control.LagPolicy = "Critical"
	a.refreshCachedConfig()
	assert.True(t, EvaluateLag(a, 2.0))

	a.MotionErr = 0
	a.Cfg.Control.LagPolicy = "Desired"
	a.refreshCachedConfig()
	assert.False(t, EvaluateLag(a, 2.0))
	assert.Zero(t, a.MotionErr&wire.MotionErrLagError)
}

func TestEvaluateLagWithinLimitClearsError(t *testing.T) {
	a := testAxis()
	a.Cfg.Control.LagErrorLimit = 1.0
	a.MotionErr = wire.MotionErrLagError
	assert.False(t, EvaluateLag(a, 0.1))
	assert.Zero(t, a.MotionErr&wire.MotionErrLagError)
}
