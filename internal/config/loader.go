package config

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/evo-platform/evo-core/internal/ioreg"
)

// DefaultDir is the default configuration directory (spec.md 6.2).
const DefaultDir = "/etc/evo"

// decodeStrict decodes path into v, rejecting any field not present in
// v's struct tags.
func decodeStrict(path string, v any) error {
	meta, err := toml.DecodeFile(path, v)
	if err != nil {
		return newErr(ErrDecodeFailed, path, "%v", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return newErr(ErrUnknownField, path, "unknown keys: %v", undecoded)
	}
	return nil
}

// LoadSystemConfig parses and validates config.toml.
func LoadSystemConfig(dir string) (*SystemConfig, error) {
	var cfg SystemConfig
	if err := decodeStrict(filepath.Join(dir, "config.toml"), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Watchdog.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadMachineConfig parses and validates machine.toml.
func LoadMachineConfig(dir string) (*MachineConfig, error) {
	var cfg MachineConfig
	if err := decodeStrict(filepath.Join(dir, "machine.toml"), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.GlobalSafety.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ioFile is io.toml's top-level shape: a flat array of points, each
// identifying its own group membership through IoPoint.Name.
type ioFile struct {
	Point []ioreg.IoPoint `toml:"point"`
}

// LoadIoPoints parses io.toml into its declared I/O points. Validation
// (duplicate pins/roles, missing required roles, analog range) happens
// in ioreg.BuildRegistry, not here.
func LoadIoPoints(dir string) ([]ioreg.IoPoint, error) {
	var f ioFile
	if err := decodeStrict(filepath.Join(dir, "io.toml"), &f); err != nil {
		return nil, err
	}
	return f.Point, nil
}

var axisFileRe = regexp.MustCompile(`^axis_(\d+)_.+\.toml$`)

// LoadAxisConfigs globs axis_*_*.toml, decodes each strictly, and
// validates that every [axis].id matches its filename's NN, that no NN
// repeats, and that at least one axis was found (spec.md 6.2, 8.1).
// Axes are returned sorted by NN.
func LoadAxisConfigs(dir string) ([]AxisConfig, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "axis_*_*.toml"))
	if err != nil {
		return nil, newErr(ErrReadFailed, dir, "%v", err)
	}

	var axes []AxisConfig
	seen := make(map[int]string)
	for _, path := range matches {
		base := filepath.Base(path)
		m := axisFileRe.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		nn, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		var cfg AxisConfig
		if err := decodeStrict(path, &cfg); err != nil {
			return nil, err
		}
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		if cfg.Axis.ID != nn {
			return nil, newErr(ErrIDMismatch, path, "[axis].id=%d does not match filename number %d", cfg.Axis.ID, nn)
		}
		if prior, dup := seen[nn]; dup {
			return nil, newErr(ErrDuplicateAxisNN, path, "axis number %d already declared in %s", nn, prior)
		}
		seen[nn] = base

		cfg.FileNumber = nn
		cfg.FileName = base
		axes = append(axes, cfg)
	}

	if len(axes) == 0 {
		return nil, newErr(ErrNoAxesFound, dir, "no axis_NN_*.toml files found")
	}

	sort.Slice(axes, func(i, j int) bool { return axes[i].FileNumber < axes[j].FileNumber })
	return axes, nil
}

// LoadAll loads every configuration file in dir and builds the I/O
// registry, returning all four documents together. requiredIoRoles lists
// global roles the registry must contain (e.g. "EStop").
func LoadAll(dir string, requiredIoRoles []string) (*SystemConfig, *MachineConfig, *ioreg.Registry, []AxisConfig, error) {
	sys, err := LoadSystemConfig(dir)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	machine, err := LoadMachineConfig(dir)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	points, err := LoadIoPoints(dir)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	registry, err := ioreg.BuildRegistry(points, requiredIoRoles)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	axes, err := LoadAxisConfigs(dir)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return sys, machine, registry, axes, nil
}
