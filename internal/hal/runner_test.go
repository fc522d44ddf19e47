package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evo-platform/evo-core/internal/ioreg"
	"github.com/evo-platform/evo-core/internal/logging"
	"github.com/evo-platform/evo-core/internal/wire"
)

func TestUnpackCommandsCopiesFields(t *testing.T) {
	var p wire.CuToHalPayload
	p.AxisCount = 3
	p.Axes[0].Enable = true
	p.AoValues[5] = 0.75
	p.DoBank.Set(2, true)

	cmd := unpackCommands(&p)
	assert.Equal(t, 3, cmd.AxisCount)
	assert.True(t, cmd.Axes[0].Enable)
	assert.InDelta(t, 0.75, cmd.AoValues[5], 1e-12)
	assert.True(t, cmd.DoBank.Get(2))
}

func buildDITestRegistry(t *testing.T) *ioreg.Registry {
	t.Helper()
	points := []ioreg.IoPoint{
		{Role: "EStop", Type: ioreg.TypeDI, Pin: 0, Logic: ioreg.LogicNC},
		{Role: "HomeSwitch", Type: ioreg.TypeDI, Pin: 1, Logic: ioreg.LogicNO},
		{Role: "Temp", Type: ioreg.TypeAI, Pin: 2, Min: 0, Max: 100, Curve: "linear"},
	}
	r, err := ioreg.BuildRegistry(points, nil)
	require.NoError(t, err)
	return r
}

func TestPackStatusAppliesDiInversionAndAiScaling(t *testing.T) {
	reg := buildDITestRegistry(t)
	runner := &Runner{registry: reg, logger: logging.NewLogger(nil)}

	var status HalStatus
	status.AxisCount = 1
	// EStop is NC: raw=false (circuit open, tripped) should invert to true (asserted).
	status.DiBank.Set(0, false)
	// HomeSwitch is NO: raw=true should pass through as true.
	status.DiBank.Set(1, true)
	// Temp is the first AI point, so it occupies AI bank index 0; the raw
	// reading is in the point's 0..100 engineering range.
	status.AiValues[0] = 50

	out := runner.packStatus(&status)
	assert.True(t, out.DiBank.Get(0), "NC EStop with raw=false (circuit open) should report true")
	assert.True(t, out.DiBank.Get(1))
	assert.InDelta(t, 50.0, out.AiValues[0], 1e-9)
}

func TestPackStatusNilRegistryPassesThrough(t *testing.T) {
	runner := &Runner{registry: nil, logger: logging.NewLogger(nil)}
	var status HalStatus
	status.DiBank.Set(4, true)
	status.AiValues[1] = 0.25

	out := runner.packStatus(&status)
	assert.True(t, out.DiBank.Get(4))
	assert.InDelta(t, 0.25, out.AiValues[1], 1e-12)
}
