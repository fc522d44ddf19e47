package hal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/ioreg"
)

type capableDriver struct {
	fakeDriver
	diag map[string]any
}

func (c *capableDriver) SupportsHotSwap() bool           { return true }
func (c *capableDriver) Diagnostics() map[string]any     { return c.diag }
func (c *capableDriver) HandleCustomCommand(cmd []byte) ([]byte, error) {
	return append([]byte("ack:"), cmd...), nil
}

var (
	_ HalDriver             = (*fakeDriver)(nil)
	_ HalDriver             = (*capableDriver)(nil)
	_ HotSwapper            = (*capableDriver)(nil)
	_ Diagnoser             = (*capableDriver)(nil)
	_ CustomCommandHandler  = (*capableDriver)(nil)
)

func TestHalDriverOptionalCapabilitiesDetectedByAssertion(t *testing.T) {
	var d HalDriver = &fakeDriver{name: "plain"}
	_, ok := d.(HotSwapper)
	assert.False(t, ok)

	var full HalDriver = &capableDriver{fakeDriver: fakeDriver{name: "full"}, diag: map[string]any{"temp": 42}}
	hs, ok := full.(HotSwapper)
	assert.True(t, ok)
	assert.True(t, hs.SupportsHotSwap())

	diag, ok := full.(Diagnoser)
	assert.True(t, ok)
	assert.Equal(t, 42, diag.Diagnostics()["temp"])

	cc, ok := full.(CustomCommandHandler)
	assert.True(t, ok)
	resp, err := cc.HandleCustomCommand([]byte("ping"))
	assert.NoError(t, err)
	assert.Equal(t, "ack:ping", string(resp))
}

func TestHalCommandsAndStatusZeroValuesAreUsable(t *testing.T) {
	var cmd HalCommands
	assert.Equal(t, 0, cmd.AxisCount)

	d := &fakeDriver{name: "zero"}
	status := d.Cycle(&cmd, time.Millisecond)
	assert.Equal(t, 0, status.AxisCount)

	assert.NoError(t, d.Init(&config.MachineConfig{}, nil, &ioreg.Registry{}))
	assert.NoError(t, d.Shutdown())
}
