package hal

import "fmt"

// Factory constructs a fresh, uninitialized driver instance by name.
type Factory func() HalDriver

// registry is the closed set of known driver names (spec.md 9's "small
// closed set of implementations... tagged variant with exhaustive
// handling"). RegisterFactory is called from init() in each driver
// package (simdrv registers "simulation").
var registry = map[string]Factory{}

// RegisterFactory adds name to the closed set of selectable drivers.
// Panics on duplicate registration, the same way a duplicate segment
// catalogue entry would indicate a programming error, not a runtime one.
func RegisterFactory(name string, f Factory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("hal: driver %q already registered", name))
	}
	registry[name] = f
}

// SelectConfig captures the three-tier selection policy from spec.md 4.2.
type SelectConfig struct {
	Simulate       bool     // --simulate / -s: wins exclusively
	ExplicitDrivers []string // --driver NAME (repeatable)
	MachineDrivers []string // machine.toml [hal].drivers, used if neither above is set
}

// Select resolves SelectConfig into the concrete driver instances to run,
// enforcing: simulation is exclusive; at most one driver of a given name;
// every requested name must be registered.
func Select(cfg SelectConfig) ([]HalDriver, error) {
	if cfg.Simulate {
		if len(cfg.ExplicitDrivers) > 0 {
			return nil, fmt.Errorf("hal: --simulate may not be combined with --driver")
		}
		d, err := instantiate("simulation")
		if err != nil {
			return nil, err
		}
		return []HalDriver{d}, nil
	}

	names := cfg.ExplicitDrivers
	if len(names) == 0 {
		names = cfg.MachineDrivers
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("hal: no driver selected (pass --simulate, --driver, or set [hal].drivers in machine.toml)")
	}

	seen := make(map[string]bool, len(names))
	drivers := make([]HalDriver, 0, len(names))
	for _, name := range names {
		if name == "simulation" {
			return nil, fmt.Errorf("hal: simulation driver may not be selected via --driver, use --simulate")
		}
		if seen[name] {
			return nil, fmt.Errorf("hal: driver %q requested more than once", name)
		}
		seen[name] = true
		d, err := instantiate(name)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, d)
	}
	return drivers, nil
}

func instantiate(name string) (HalDriver, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("hal: unknown driver %q", name)
	}
	return f(), nil
}
