package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPowerErrorFlagSetHasClear(t *testing.T) {
	var f PowerErrorFlag
	assert.False(t, f.Has(PowerErrDriveFault))

	f.Set(PowerErrDriveFault)
	assert.True(t, f.Has(PowerErrDriveFault))
	assert.False(t, f.Has(PowerErrUndervoltage))

	f.Set(PowerErrUndervoltage)
	f.Clear(PowerErrDriveFault)
	assert.False(t, f.Has(PowerErrDriveFault))
	assert.True(t, f.Has(PowerErrUndervoltage))
}

func TestMotionErrorFlagSeverity(t *testing.T) {
	var f MotionErrorFlag
	f.Set(MotionErrLagError)
	assert.True(t, f.Has(MotionErrLagError))
	assert.Equal(t, Critical, MotionErrorSeverity(f))

	f.Clear(MotionErrLagError)
	assert.Equal(t, Recoverable, MotionErrorSeverity(f))
}

func TestCouplingErrorFlagSeverity(t *testing.T) {
	var f CouplingError
	f.Set(CouplingErrSyncLost)
	assert.Equal(t, Recoverable, CouplingErrorSeverity(f))

	f.Set(CouplingErrMasterMissing)
	assert.True(t, f.Has(CouplingErrMasterMissing))
	assert.Equal(t, Critical, CouplingErrorSeverity(f))

	f.Clear(CouplingErrMasterMissing)
	assert.Equal(t, Recoverable, CouplingErrorSeverity(f))
}

func TestGearboxAndCommandErrorFlags(t *testing.T) {
	var g GearboxErrorFlag
	g.Set(GearboxErrShiftTimeout)
	assert.True(t, g.Has(GearboxErrShiftTimeout))
	assert.False(t, g.Has(GearboxErrSensorMismatch))

	var c CommandError
	c.Set(CommandErrSourceLocked)
	assert.True(t, c.Has(CommandErrSourceLocked))
	c.Clear(CommandErrSourceLocked)
	assert.False(t, c.Has(CommandErrSourceLocked))
}
