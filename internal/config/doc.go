// Package config loads the flat declarative configuration directory
// (config.toml, machine.toml, io.toml, axis_NN_*.toml) into validated Go
// structs using github.com/BurntSushi/toml, rejecting any unknown field
// (spec.md 6.2).
package config
