package cu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/wire"
)

func testAxis() *AxisRuntime {
	cfg := config.AxisConfig{
		Axis:       config.AxisIdentity{ID: 1, Type: "Positioning"},
		Kinematics: config.KinematicsConfig{MaxVelocity: 100, MaxAcceleration: 1000, InPositionWindow: 0.1},
		Control:    config.ControlConfig{OutMax: 100, LagPolicy: "Unwanted"},
		SafeStop:   config.SafeStopConfig{Category: "STO"},
		FileName:   "axis_01_x.toml",
	}
	return NewAxisRuntime(0, cfg, wire.SafeStopSTO)
}

func TestStepPowerOnEnableSequencesToMotion(t *testing.T) {
	a := testAxis()
	fb := wire.HalAxisFeedback{DriveStatus: wire.DriveReady}

	StepPower(a, true, fb, wire.SafetySafe)
	assert.Equal(t, wire.PowerPoweringOn, a.Power)

	fb.DriveStatus |= wire.DriveEnabled | wire.DriveZeroSpeed
	StepPower(a, true, fb, wire.SafetySafe)
	assert.Equal(t, wire.PowerStandby, a.Power)

	fb.DriveStatus &^= wire.DriveZeroSpeed
	StepPower(a, true, fb, wire.SafetySafe)
	assert.Equal(t, wire.PowerMotion, a.Power)
}

func TestStepPowerSafetyStopForcesPoweringOff(t *testing.T) {
	a := testAxis()
	a.Power = wire.PowerMotion
	fb := wire.HalAxisFeedback{DriveStatus: wire.DriveReady | wire.DriveEnabled}

	StepPower(a, true, fb, wire.SafetySafetyStop)
	assert.Equal(t, wire.PowerPoweringOff, a.Power)

	fb.DriveStatus &^= wire.DriveEnabled
	StepPower(a, true, fb, wire.SafetySafetyStop)
	assert.Equal(t, wire.PowerOff, a.Power)
}

func TestStepPowerFaultEntersPowerError(t *testing.T) {
	a := testAxis()
	a.Power = wire.PowerMotion
	fb := wire.HalAxisFeedback{DriveStatus: wire.DriveFault}
	StepPower(a, true, fb, wire.SafetySafe)
	assert.Equal(t, wire.PowerError, a.Power)
}

func TestStepMotionAccelerateThenStandstill(t *testing.T) {
	a := testAxis()
	a.Power = wire.PowerMotion

	StepMotion(a, 10, false, false, false)
	assert.Equal(t, wire.MotionAccelerating, a.Motion)

	StepMotion(a, 10, false, false, false)
	assert.Equal(t, wire.MotionConstantVelocity, a.Motion)

	StepMotion(a, 0, false, false, false)
	assert.Equal(t, wire.MotionDecelerating, a.Motion)

	StepMotion(a, 0, false, false, false)
	assert.Equal(t, wire.MotionStandstill, a.Motion)
}

func TestStepMotionEstopOverridesEverything(t *testing.T) {
	a := testAxis()
	a.Power = wire.PowerMotion
	StepMotion(a, 50, false, false, true)
	assert.Equal(t, wire.MotionEmergencyStop, a.Motion)
}

func TestStepMotionLagExceededEntersMotionError(t *testing.T) {
	a := testAxis()
	a.Power = wire.PowerMotion
	StepMotion(a, 10, false, true, false)
	assert.Equal(t, wire.MotionError, a.Motion)
}

func TestStepOperationalManualRejectedOutsideMachineManual(t *testing.T) {
	a := testAxis()
	StepOperational(a, wire.OperationalManual, wire.MachineActive)
	assert.Equal(t, wire.OperationalPosition, a.Operational)

	StepOperational(a, wire.OperationalManual, wire.MachineManual)
	assert.Equal(t, wire.OperationalManual, a.Operational)
}

func TestStepCouplingTracksMasterThenLosesSync(t *testing.T) {
	a := testAxis()
	StepCoupling(a, true, true, 0, 0.1)
	assert.Equal(t, wire.CouplingCoupling, a.Coupling)

	StepCoupling(a, true, true, 0, 0.1)
	assert.Equal(t, wire.CouplingWaitingSync, a.Coupling)

	StepCoupling(a, true, true, 0, 0.1)
	assert.Equal(t, wire.CouplingSynchronized, a.Coupling)

	StepCoupling(a, true, false, 0, 0.1)
	assert.Equal(t, wire.CouplingSyncLost, a.Coupling)
	assert.NotZero(t, a.CouplingErr&wire.CouplingErrMasterMissing)
}

func TestStepGearboxNoGearboxWhenUnconfigured(t *testing.T) {
	a := testAxis()
	StepGearbox(a, false)
	assert.Equal(t, wire.GearboxNoGearbox, a.Gearbox)
}

func TestStepLoadingReflectsPowerAndMachineState(t *testing.T) {
	a := testAxis()
	a.Power = wire.PowerMotion
	StepLoading(a, wire.MachineActive)
	assert.Equal(t, wire.LoadingProduction, a.Loading)

	a.Power = wire.PowerOff
	StepLoading(a, wire.MachineService)
	assert.Equal(t, wire.LoadingReadyForLoading, a.Loading)
}
