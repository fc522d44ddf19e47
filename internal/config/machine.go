package config

import "github.com/evo-platform/evo-core/internal/wire"

// MachineIdentity is machine.toml's [machine] table.
type MachineIdentity struct {
	Name string `toml:"name"`
}

// GlobalSafetyConfig is machine.toml's [global_safety] table.
type GlobalSafetyConfig struct {
	DefaultSafeStop                string  `toml:"default_safe_stop"` // SS1, SS2, or STO
	SafetyStopTimeout              float64 `toml:"safety_stop_timeout"`
	RecoveryAuthorizationRequired  bool    `toml:"recovery_authorization_required"`
}

func (s GlobalSafetyConfig) validate() error {
	switch s.DefaultSafeStop {
	case "SS1", "SS2", "STO":
	default:
		return newErr(ErrOutOfRange, "machine.toml", "global_safety.default_safe_stop %q must be SS1, SS2, or STO", s.DefaultSafeStop)
	}
	return nil
}

// ParseDefaultSafeStop converts the TOML string form to wire.SafeStopCategory,
// the machine-wide fallback an axis's own safe_stop.category defers to when
// absent or malformed.
func (s GlobalSafetyConfig) ParseDefaultSafeStop() (wire.SafeStopCategory, error) {
	switch s.DefaultSafeStop {
	case "STO":
		return wire.SafeStopSTO, nil
	case "SS1":
		return wire.SafeStopSS1, nil
	case "SS2":
		return wire.SafeStopSS2, nil
	default:
		return 0, newErr(ErrOutOfRange, "", "global_safety.default_safe_stop %q must be STO, SS1, or SS2", s.DefaultSafeStop)
	}
}

// ServiceBypassConfig is machine.toml's [service_bypass] table.
type ServiceBypassConfig struct {
	BypassAxes         []int   `toml:"bypass_axes"`
	MaxServiceVelocity float64 `toml:"max_service_velocity"`
}

// HalDriversConfig is machine.toml's [hal] table: the default driver list
// used when the HAL binary receives neither --simulate nor --driver
// (spec.md 4.2's third driver-selection tier).
type HalDriversConfig struct {
	Drivers []string `toml:"drivers"`
}

// MachineConfig is the decoded contents of machine.toml. Legacy fields
// like [[axes]] or a top-level axes_dir are deliberately not modeled:
// attempting to decode either hard-errors via the strict unknown-field
// check (spec.md 6.2).
type MachineConfig struct {
	Machine       MachineIdentity     `toml:"machine"`
	GlobalSafety  GlobalSafetyConfig  `toml:"global_safety"`
	ServiceBypass ServiceBypassConfig `toml:"service_bypass"`
	Hal           HalDriversConfig    `toml:"hal"`
}
