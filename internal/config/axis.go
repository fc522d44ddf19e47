package config

import (
	"math"
	"strings"

	"github.com/evo-platform/evo-core/internal/wire"
)

// AxisIdentity is axis_NN_<name>.toml's [axis] table. Id must equal the
// zero-padded number in the filename (spec.md 6.2, 8.1).
type AxisIdentity struct {
	ID   int    `toml:"id"`
	Type string `toml:"type"` // Simple, Positioning, Measurement, Slave
}

// ParseType converts the TOML string form to wire.AxisKind.
func (a AxisIdentity) ParseType() (wire.AxisKind, error) {
	switch a.Type {
	case "Positioning":
		return wire.AxisKindPositioning, nil
	case "Simple":
		return wire.AxisKindSimple, nil
	case "Measurement":
		return wire.AxisKindMeasurement, nil
	case "Slave":
		return wire.AxisKindSlave, nil
	default:
		return 0, newErr(ErrOutOfRange, "", "axis.type %q must be Positioning, Simple, Measurement, or Slave", a.Type)
	}
}

// KinematicsConfig is the [kinematics] table.
type KinematicsConfig struct {
	MaxVelocity           float64 `toml:"max_velocity"`
	MaxAcceleration       float64 `toml:"max_acceleration"`
	InPositionWindow      float64 `toml:"in_position_window"`
	SoftLimitMin          float64 `toml:"soft_limit_min"`
	SoftLimitMax          float64 `toml:"soft_limit_max"`
	SafeReducedSpeedLimit float64 `toml:"safe_reduced_speed_limit"`
}

// validate bound-checks kinematics against the shared numeric bounds
// (spec.md 3.3), rejecting a non-positive max_velocity/max_acceleration,
// negative windows, NaN/Inf, and an inverted soft-limit pair at load time.
func (k KinematicsConfig) validate() error {
	if k.MaxVelocity < wire.MinAxisVelocity || k.MaxVelocity > wire.MaxAxisVelocity {
		return newErr(ErrOutOfRange, "", "kinematics.max_velocity %v must be in [%v,%v]", k.MaxVelocity, wire.MinAxisVelocity, wire.MaxAxisVelocity)
	}
	if k.MaxAcceleration < wire.MinAxisAcceleration || k.MaxAcceleration > wire.MaxAxisAcceleration {
		return newErr(ErrOutOfRange, "", "kinematics.max_acceleration %v must be in [%v,%v]", k.MaxAcceleration, wire.MinAxisAcceleration, wire.MaxAxisAcceleration)
	}
	if k.InPositionWindow < 0 || k.InPositionWindow > wire.MaxAxisSoftLimit {
		return newErr(ErrOutOfRange, "", "kinematics.in_position_window %v must be >= 0", k.InPositionWindow)
	}
	if k.SafeReducedSpeedLimit < 0 || k.SafeReducedSpeedLimit > wire.MaxAxisVelocity {
		return newErr(ErrOutOfRange, "", "kinematics.safe_reduced_speed_limit %v must be >= 0", k.SafeReducedSpeedLimit)
	}
	if k.SoftLimitMin < -wire.MaxAxisSoftLimit || k.SoftLimitMin > wire.MaxAxisSoftLimit {
		return newErr(ErrOutOfRange, "", "kinematics.soft_limit_min %v out of range", k.SoftLimitMin)
	}
	if k.SoftLimitMax < -wire.MaxAxisSoftLimit || k.SoftLimitMax > wire.MaxAxisSoftLimit {
		return newErr(ErrOutOfRange, "", "kinematics.soft_limit_max %v out of range", k.SoftLimitMax)
	}
	if k.SoftLimitMin > k.SoftLimitMax {
		return newErr(ErrOutOfRange, "", "kinematics.soft_limit_min %v exceeds soft_limit_max %v", k.SoftLimitMin, k.SoftLimitMax)
	}
	return nil
}

// ControlConfig is the [control] table feeding the universal control
// engine (spec.md 4.3).
type ControlConfig struct {
	Kp             float64 `toml:"kp"`
	Ki             float64 `toml:"ki"`
	Kd             float64 `toml:"kd"`
	Tf             float64 `toml:"tf"`
	Tt             float64 `toml:"tt"`
	Kvff           float64 `toml:"kvff"`
	Kaff           float64 `toml:"kaff"`
	Friction       float64 `toml:"friction"`
	Jn             float64 `toml:"jn"`
	Bn             float64 `toml:"bn"`
	Gdob           float64 `toml:"gdob"`
	FNotch         float64 `toml:"f_notch"`
	BwNotch        float64 `toml:"bw_notch"`
	Flp            float64 `toml:"flp"`
	OutMax         float64 `toml:"out_max"`
	LagErrorLimit  float64 `toml:"lag_error_limit"`
	LagPolicy      string  `toml:"lag_policy"` // Critical, Unwanted, Neutral, Desired
}

// ParseLagPolicy converts the TOML string form to wire.LagPolicy.
func (c ControlConfig) ParseLagPolicy() (wire.LagPolicy, error) {
	switch c.LagPolicy {
	case "Critical":
		return wire.LagPolicyCritical, nil
	case "Unwanted":
		return wire.LagPolicyUnwanted, nil
	case "Neutral":
		return wire.LagPolicyNeutral, nil
	case "Desired":
		return wire.LagPolicyDesired, nil
	default:
		return 0, newErr(ErrOutOfRange, "", "control.lag_policy %q must be Critical, Unwanted, Neutral, or Desired", c.LagPolicy)
	}
}

// validate bound-checks the control gains and parses lag_policy, rejecting
// NaN/Inf gains and an out-of-range out_max/lag_error_limit at load time
// (spec.md 3.3, 6.2) instead of letting them reach the control engine.
func (c ControlConfig) validate() error {
	if c.OutMax <= 0 || c.OutMax > wire.MaxAxisOutMax {
		return newErr(ErrOutOfRange, "", "control.out_max %v must be in (0,%v]", c.OutMax, wire.MaxAxisOutMax)
	}
	if c.LagErrorLimit < 0 || c.LagErrorLimit > wire.MaxAxisLagErrorLimit {
		return newErr(ErrOutOfRange, "", "control.lag_error_limit %v must be in [0,%v] (0 disables lag monitoring)", c.LagErrorLimit, wire.MaxAxisLagErrorLimit)
	}
	gains := map[string]float64{
		"kp": c.Kp, "ki": c.Ki, "kd": c.Kd, "tf": c.Tf, "tt": c.Tt,
		"kvff": c.Kvff, "kaff": c.Kaff, "friction": c.Friction,
		"jn": c.Jn, "bn": c.Bn, "gdob": c.Gdob,
		"f_notch": c.FNotch, "bw_notch": c.BwNotch, "flp": c.Flp,
	}
	for name, v := range gains {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return newErr(ErrOutOfRange, "", "control.%s must be a finite number, got %v", name, v)
		}
	}
	if _, err := c.ParseLagPolicy(); err != nil {
		return err
	}
	return nil
}

// SafeStopConfig is the [safe_stop] table.
type SafeStopConfig struct {
	Category         string  `toml:"category"` // STO, SS1, SS2
	MaxDecelSafe     float64 `toml:"max_decel_safe"`
	StoBrakeDelay    float64 `toml:"sto_brake_delay"`
	Ss2HoldingTorque float64 `toml:"ss2_holding_torque"`
}

// ParseCategory converts the TOML string form to wire.SafeStopCategory.
func (c SafeStopConfig) ParseCategory() (wire.SafeStopCategory, error) {
	switch c.Category {
	case "STO":
		return wire.SafeStopSTO, nil
	case "SS1":
		return wire.SafeStopSS1, nil
	case "SS2":
		return wire.SafeStopSS2, nil
	default:
		return 0, newErr(ErrOutOfRange, "", "safe_stop.category %q must be STO, SS1, or SS2", c.Category)
	}
}

// HomingConfig is the [homing] table.
type HomingConfig struct {
	Method            string  `toml:"method"` // No, SwitchThenIndex, SwitchOnly, IndexOnly, LimitThenIndex, LimitOnly
	Speed             float64 `toml:"speed"`
	TorqueLimit       float64 `toml:"torque_limit"`
	Timeout           float64 `toml:"timeout"`
	ApproachDirection string  `toml:"approach_direction"` // Positive, Negative
	SwitchRole        string  `toml:"switch_role"`
	IndexRole         string  `toml:"index_role"`

	// ReferencingRequired governs how a persisted position is trusted at
	// startup (spec.md 3.3's "Persisted axis state"): "Perhaps" reuses the
	// stored position and its referenced flag, "Yes" always re-homes, "No"
	// treats the stored position as authoritative without homing.
	ReferencingRequired string `toml:"referencing_required"`

	// SwitchPosition and IndexPosition are the simulation driver's virtual
	// positions for the home switch and index pulse (spec.md 4.2's
	// referencing state machine "uses virtual switch and index positions
	// from config"); a real driver ignores these and reads live sensors.
	SwitchPosition float64 `toml:"switch_position"`
	IndexPosition  float64 `toml:"index_position"`
}

// ReferencingRequirement is the parsed form of HomingConfig.ReferencingRequired.
type ReferencingRequirement int

const (
	ReferencingPerhaps ReferencingRequirement = iota
	ReferencingYes
	ReferencingNo
)

// ParseReferencingRequired maps the TOML string form, defaulting to
// Perhaps when empty.
func (h HomingConfig) ParseReferencingRequired() (ReferencingRequirement, error) {
	switch h.ReferencingRequired {
	case "", "Perhaps":
		return ReferencingPerhaps, nil
	case "Yes":
		return ReferencingYes, nil
	case "No":
		return ReferencingNo, nil
	default:
		return 0, newErr(ErrOutOfRange, "", "homing.referencing_required %q must be Yes, No, or Perhaps", h.ReferencingRequired)
	}
}

// ParseMethod converts the TOML string form to wire.RefMode, defaulting to
// RefModeNo when empty (an axis file with no [homing] section leaves it
// blank; AxisConfig.validate calls this for every axis).
func (h HomingConfig) ParseMethod() (wire.RefMode, error) {
	switch h.Method {
	case "", "No":
		return wire.RefModeNo, nil
	case "SwitchThenIndex":
		return wire.RefModeSwitchThenIndex, nil
	case "SwitchOnly":
		return wire.RefModeSwitchOnly, nil
	case "IndexOnly":
		return wire.RefModeIndexOnly, nil
	case "LimitThenIndex":
		return wire.RefModeLimitThenIndex, nil
	case "LimitOnly":
		return wire.RefModeLimitOnly, nil
	default:
		return 0, newErr(ErrOutOfRange, "", "homing.method %q must be No, SwitchThenIndex, SwitchOnly, IndexOnly, LimitThenIndex, or LimitOnly", h.Method)
	}
}

// ParseApproachDirection converts the TOML string form to
// wire.ApproachDirection, defaulting to ApproachPositive when empty.
func (h HomingConfig) ParseApproachDirection() (wire.ApproachDirection, error) {
	switch h.ApproachDirection {
	case "", "Positive":
		return wire.ApproachPositive, nil
	case "Negative":
		return wire.ApproachNegative, nil
	default:
		return 0, newErr(ErrOutOfRange, "", "homing.approach_direction %q must be Positive or Negative", h.ApproachDirection)
	}
}

// validate parses method, approach_direction, and referencing_required, and
// bound-checks the numeric fields (spec.md 3.3), rejecting a malformed enum
// or a negative/non-finite speed, torque_limit, or timeout at load time.
func (h HomingConfig) validate() error {
	if _, err := h.ParseMethod(); err != nil {
		return err
	}
	if _, err := h.ParseApproachDirection(); err != nil {
		return err
	}
	if _, err := h.ParseReferencingRequired(); err != nil {
		return err
	}
	if h.Speed < 0 || math.IsNaN(h.Speed) || math.IsInf(h.Speed, 0) {
		return newErr(ErrOutOfRange, "", "homing.speed %v must be a finite number >= 0", h.Speed)
	}
	if h.TorqueLimit < 0 || math.IsNaN(h.TorqueLimit) || math.IsInf(h.TorqueLimit, 0) {
		return newErr(ErrOutOfRange, "", "homing.torque_limit %v must be a finite number >= 0", h.TorqueLimit)
	}
	if h.Timeout < 0 || math.IsNaN(h.Timeout) || math.IsInf(h.Timeout, 0) {
		return newErr(ErrOutOfRange, "", "homing.timeout %v must be a finite number >= 0", h.Timeout)
	}
	return nil
}

// BrakeConfig, TailstockConfig, GuardConfig, CouplingConfig are optional
// per-axis sections; a nil pointer in AxisConfig means the section was
// absent.
type BrakeConfig struct {
	OutputRole string  `toml:"output_role"`
	DelayS     float64 `toml:"delay_s"`
}

type TailstockConfig struct {
	InRole  string `toml:"in_role"`
	OutRole string `toml:"out_role"`
}

type GuardConfig struct {
	ClosedRole string `toml:"closed_role"`
}

type CouplingConfig struct {
	MasterAxis int `toml:"master_axis"`
}

// AxisConfig is the decoded contents of one axis_NN_<name>.toml.
type AxisConfig struct {
	Axis       AxisIdentity      `toml:"axis"`
	Kinematics KinematicsConfig  `toml:"kinematics"`
	Control    ControlConfig     `toml:"control"`
	SafeStop   SafeStopConfig    `toml:"safe_stop"`
	Homing     HomingConfig      `toml:"homing"`
	Brake      *BrakeConfig      `toml:"brake"`
	Tailstock  *TailstockConfig  `toml:"tailstock"`
	Guard      *GuardConfig      `toml:"guard"`
	Coupling   *CouplingConfig   `toml:"coupling"`

	// FileNumber is the zero-padded NN parsed from the filename, not from
	// the file's own content; compared against Axis.ID at load time.
	FileNumber int `toml:"-"`
	FileName   string `toml:"-"`
}

// Name returns the axis's human-readable name, the <name> portion of its
// axis_NN_<name>.toml filename. Used as the join key for persisted axis
// state (spec.md 6.4), independent of axis ordering.
func (c AxisConfig) Name() string {
	base := strings.TrimSuffix(c.FileName, ".toml")
	parts := strings.SplitN(base, "_", 3)
	if len(parts) == 3 {
		return parts[2]
	}
	return base
}

// validate resolves and range-checks every section, so a malformed enum or
// an out-of-range numeric value fails at load time (spec.md 6.2) instead of
// reaching the control engine or the RT hot path.
func (c AxisConfig) validate() error {
	if _, err := c.Axis.ParseType(); err != nil {
		return err
	}
	if err := c.Kinematics.validate(); err != nil {
		return err
	}
	if err := c.Control.validate(); err != nil {
		return err
	}
	if _, err := c.SafeStop.ParseCategory(); err != nil {
		return err
	}
	if err := c.Homing.validate(); err != nil {
		return err
	}
	return nil
}
