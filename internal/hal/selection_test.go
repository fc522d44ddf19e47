package hal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/ioreg"
)

type fakeDriver struct{ name string }

func (f *fakeDriver) Init(*config.MachineConfig, []config.AxisConfig, *ioreg.Registry) error {
	return nil
}
func (f *fakeDriver) Cycle(*HalCommands, time.Duration) HalStatus { return HalStatus{} }
func (f *fakeDriver) Shutdown() error                             { return nil }
func (f *fakeDriver) Name() string                                { return f.name }

func registerFake(t *testing.T, name string) {
	t.Helper()
	RegisterFactory(name, func() HalDriver { return &fakeDriver{name: name} })
	t.Cleanup(func() { delete(registry, name) })
}

func TestRegisterFactoryDuplicatePanics(t *testing.T) {
	registerFake(t, "dup-test")
	assert.Panics(t, func() {
		RegisterFactory("dup-test", func() HalDriver { return &fakeDriver{} })
	})
}

func TestSelectSimulationExclusive(t *testing.T) {
	registerFake(t, "simulation")
	drivers, err := Select(SelectConfig{Simulate: true})
	require.NoError(t, err)
	require.Len(t, drivers, 1)
	assert.Equal(t, "simulation", drivers[0].Name())
}

func TestSelectSimulationRejectsExplicitDrivers(t *testing.T) {
	registerFake(t, "simulation")
	_, err := Select(SelectConfig{Simulate: true, ExplicitDrivers: []string{"acme"}})
	assert.Error(t, err)
}

func TestSelectExplicitDriversWinOverMachineDefault(t *testing.T) {
	registerFake(t, "acme")
	drivers, err := Select(SelectConfig{
		ExplicitDrivers: []string{"acme"},
		MachineDrivers:  []string{"other"},
	})
	require.NoError(t, err)
	require.Len(t, drivers, 1)
	assert.Equal(t, "acme", drivers[0].Name())
}

func TestSelectFallsBackToMachineDrivers(t *testing.T) {
	registerFake(t, "acme2")
	drivers, err := Select(SelectConfig{MachineDrivers: []string{"acme2"}})
	require.NoError(t, err)
	require.Len(t, drivers, 1)
	assert.Equal(t, "acme2", drivers[0].Name())
}

func TestSelectExplicitCannotNameSimulation(t *testing.T) {
	registerFake(t, "simulation")
	_, err := Select(SelectConfig{ExplicitDrivers: []string{"simulation"}})
	assert.Error(t, err)
}

func TestSelectRejectsDuplicateNames(t *testing.T) {
	registerFake(t, "acme3")
	_, err := Select(SelectConfig{ExplicitDrivers: []string{"acme3", "acme3"}})
	assert.Error(t, err)
}

func TestSelectUnknownDriverErrors(t *testing.T) {
	_, err := Select(SelectConfig{ExplicitDrivers: []string{"nonexistent"}})
	assert.Error(t, err)
}

func TestSelectNoneSelectedErrors(t *testing.T) {
	_, err := Select(SelectConfig{})
	assert.Error(t, err)
}
