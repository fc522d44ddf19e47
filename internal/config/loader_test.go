package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const validSystemToml = `
[watchdog]
max_restarts = 5
initial_backoff_ms = 100
max_backoff_s = 30
stable_run_s = 60
sigterm_timeout_s = 2.0
hal_ready_timeout_s = 5.0

[hal]
enabled = true
`

func TestLoadSystemConfigValid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", validSystemToml)

	cfg, err := LoadSystemConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Watchdog.MaxRestarts)
	assert.True(t, cfg.Hal.Enabled)
}

func TestLoadSystemConfigUnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", validSystemToml+"\nunknown_top_level = true\n")

	_, err := LoadSystemConfig(dir)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrUnknownField, e.Code)
}

func TestLoadSystemConfigOutOfRangeRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", `
[watchdog]
max_restarts = 0
initial_backoff_ms = 100
max_backoff_s = 30
stable_run_s = 60
sigterm_timeout_s = 2.0
hal_ready_timeout_s = 5.0
`)
	_, err := LoadSystemConfig(dir)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrOutOfRange, e.Code)
}

func TestLoadMachineConfigRejectsLegacyAxesField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "machine.toml", `
[machine]
name = "line1"

[global_safety]
default_safe_stop = "SS1"
safety_stop_timeout = 1.0
recovery_authorization_required = false

axes_dir = "/etc/evo/axes"
`)
	_, err := LoadMachineConfig(dir)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrUnknownField, e.Code)
}

func TestLoadAxisConfigsIDMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "axis_01_gantry.toml", `
[axis]
id = 2
type = "Positioning"

[kinematics]
max_velocity = 100
max_acceleration = 500
in_position_window = 0.1
soft_limit_min = 0
soft_limit_max = 1000
safe_reduced_speed_limit = 20

[control]
kp = 1
ki = 0
kd = 0
tf = 0.01
tt = 0.1
kvff = 0
kaff = 0
friction = 0
jn = 1
bn = 0
gdob = 0
f_notch = 0
bw_notch = 0
flp = 0
out_max = 100
lag_error_limit = 5
lag_policy = "Critical"

[safe_stop]
category = "SS1"
max_decel_safe = 1000
sto_brake_delay = 0.1
ss2_holding_torque = 0

[homing]
method = "No"
speed = 0
torque_limit = 0
timeout = 0
approach_direction = "Positive"
`)
	_, err := LoadAxisConfigs(dir)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrIDMismatch, e.Code)
}

const validAxisToml = `
[axis]
id = 1
type = "Positioning"

[kinematics]
max_velocity = 100
max_acceleration = 500
in_position_window = 0.1
soft_limit_min = 0
soft_limit_max = 1000
safe_reduced_speed_limit = 20

[control]
kp = 1
ki = 0
kd = 0
tf = 0.01
tt = 0.1
kvff = 0
kaff = 0
friction = 0
jn = 1
bn = 0
gdob = 0
f_notch = 0
bw_notch = 0
flp = 0
out_max = 100
lag_error_limit = 5
lag_policy = "Critical"

[safe_stop]
category = "SS1"
max_decel_safe = 1000
sto_brake_delay = 0.1
ss2_holding_torque = 0

[homing]
method = "No"
speed = 0
torque_limit = 0
timeout = 0
approach_direction = "Positive"
`

func TestLoadAxisConfigsValid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "axis_01_gantry.toml", validAxisToml)

	axes, err := LoadAxisConfigs(dir)
	require.NoError(t, err)
	require.Len(t, axes, 1)
	assert.Equal(t, "gantry", axes[0].Name())
}

func TestLoadAxisConfigsRejectsNonPositiveMaxVelocity(t *testing.T) {
	dir := t.TempDir()
	bad := strings.Replace(validAxisToml, "max_velocity = 100", "max_velocity = 0", 1)
	writeFile(t, dir, "axis_01_gantry.toml", bad)

	_, err := LoadAxisConfigs(dir)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrOutOfRange, e.Code)
}

func TestLoadAxisConfigsRejectsNonPositiveOutMax(t *testing.T) {
	dir := t.TempDir()
	bad := strings.Replace(validAxisToml, "out_max = 100", "out_max = -1", 1)
	writeFile(t, dir, "axis_01_gantry.toml", bad)

	_, err := LoadAxisConfigs(dir)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrOutOfRange, e.Code)
}

func TestLoadAxisConfigsRejectsNegativeLagErrorLimit(t *testing.T) {
	dir := t.TempDir()
	bad := strings.Replace(validAxisToml, "lag_error_limit = 5", "lag_error_limit = -5", 1)
	writeFile(t, dir, "axis_01_gantry.toml", bad)

	_, err := LoadAxisConfigs(dir)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrOutOfRange, e.Code)
}

func TestLoadAxisConfigsRejectsMalformedAxisType(t *testing.T) {
	dir := t.TempDir()
	bad := strings.Replace(validAxisToml, `type = "Positioning"`, `type = "Positoning"`, 1)
	writeFile(t, dir, "axis_01_gantry.toml", bad)

	_, err := LoadAxisConfigs(dir)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrOutOfRange, e.Code)
}

func TestLoadAxisConfigsRejectsMalformedLagPolicy(t *testing.T) {
	dir := t.TempDir()
	bad := strings.Replace(validAxisToml, `lag_policy = "Critical"`, `lag_policy = "Critial"`, 1)
	writeFile(t, dir, "axis_01_gantry.toml", bad)

	_, err := LoadAxisConfigs(dir)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrOutOfRange, e.Code)
}

func TestLoadAxisConfigsRejectsMalformedSafeStopCategory(t *testing.T) {
	dir := t.TempDir()
	bad := strings.Replace(validAxisToml, `category = "SS1"`, `category = "SS3"`, 1)
	writeFile(t, dir, "axis_01_gantry.toml", bad)

	_, err := LoadAxisConfigs(dir)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrOutOfRange, e.Code)
}

func TestLoadAxisConfigsRejectsMalformedHomingMethod(t *testing.T) {
	dir := t.TempDir()
	bad := strings.Replace(validAxisToml, `method = "No"`, `method = "Nope"`, 1)
	writeFile(t, dir, "axis_01_gantry.toml", bad)

	_, err := LoadAxisConfigs(dir)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrOutOfRange, e.Code)
}

func TestLoadAxisConfigsRejectsInvertedSoftLimits(t *testing.T) {
	dir := t.TempDir()
	bad := strings.Replace(validAxisToml, "soft_limit_min = 0\nsoft_limit_max = 1000", "soft_limit_min = 1000\nsoft_limit_max = 0", 1)
	writeFile(t, dir, "axis_01_gantry.toml", bad)

	_, err := LoadAxisConfigs(dir)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrOutOfRange, e.Code)
}

func TestLoadAxisConfigsNoneFound(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadAxisConfigs(dir)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrNoAxesFound, e.Code)
}

func TestLoadIoPointsValid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "io.toml", `
[[point]]
type = "DI"
pin = 0
role = "EStop"
logic = "NC"

[[point]]
type = "DO"
pin = 0
role = "BrakeOut1"
inverted = true
`)
	points, err := LoadIoPoints(dir)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "EStop", points[0].Role)
}
