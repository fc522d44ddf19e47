package ioreg

import "fmt"

// ErrCode is a closed taxonomy of registry build/validation failures.
type ErrCode string

const (
	ErrDuplicatePin    ErrCode = "duplicate pin"
	ErrDuplicateRole   ErrCode = "duplicate role"
	ErrRoleTypeMismatch ErrCode = "role/type mismatch"
	ErrMissingRole     ErrCode = "missing required role"
	ErrInvalidRange    ErrCode = "invalid analog range"
	ErrPinOutOfRange   ErrCode = "pin out of range"
	ErrUnknownCurve    ErrCode = "unknown curve"
	ErrRoleOwned       ErrCode = "ERR_IO_ROLE_OWNED"
)

// Error is a structured I/O registry error.
type Error struct {
	Code ErrCode
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("ioreg: %s: %s", e.Code, e.Msg) }

func newErr(code ErrCode, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// resolvedPoint is an IoPoint plus its bank index and resolved curve,
// stored in the registry's lookup tables.
type resolvedPoint struct {
	point IoPoint
	index int // index into the corresponding DI/DO/AI/AO bank
	curve AnalogCurve
}

// Registry is the single source of truth for role -> (type, index, pin,
// logic, curve, min, max, offset), built once at startup from the
// declarative I/O configuration (spec.md 4.4). HAL and CU build
// byte-identical registries from the same io.toml, independently.
type Registry struct {
	byRole  map[string]resolvedPoint
	diPins  map[int]bool
	doPins  map[int]bool
	aiPins  map[int]bool
	aoPins  map[int]bool
	doLinks map[int][]LinkedReaction
}

const (
	maxPin = 1 << 16
)

// BuildRegistry validates points and constructs the registry. requiredRoles
// lists global roles that must be present (e.g. "EStop").
func BuildRegistry(points []IoPoint, requiredRoles []string) (*Registry, error) {
	r := &Registry{
		byRole:  make(map[string]resolvedPoint),
		diPins:  make(map[int]bool),
		doPins:  make(map[int]bool),
		aiPins:  make(map[int]bool),
		aoPins:  make(map[int]bool),
		doLinks: make(map[int][]LinkedReaction),
	}

	diN, doN, aiN, aoN := 0, 0, 0, 0
	for _, p := range points {
		if p.Pin < 0 || p.Pin >= maxPin {
			return nil, newErr(ErrPinOutOfRange, "pin %d out of range", p.Pin)
		}

		var pins map[int]bool
		var index int
		switch p.Type {
		case TypeDI:
			pins, index = r.diPins, diN
		case TypeDO:
			pins, index = r.doPins, doN
		case TypeAI:
			pins, index = r.aiPins, aiN
		case TypeAO:
			pins, index = r.aoPins, aoN
		default:
			return nil, newErr(ErrRoleTypeMismatch, "unknown point type %q", p.Type)
		}
		if pins[p.Pin] {
			return nil, newErr(ErrDuplicatePin, "%s pin %d declared twice", p.Type, p.Pin)
		}
		pins[p.Pin] = true

		var curve AnalogCurve
		if p.Type == TypeAI || p.Type == TypeAO {
			if p.Max <= p.Min {
				return nil, newErr(ErrInvalidRange, "point %q: max (%v) <= min (%v)", p.Role, p.Max, p.Min)
			}
			var ok bool
			curve, ok = p.ResolveCurve()
			if !ok {
				return nil, newErr(ErrUnknownCurve, "point %q: unknown curve %q", p.Role, p.Curve)
			}
			if !curve.Valid() {
				return nil, newErr(ErrInvalidRange, "point %q: curve coefficients must sum to 1", p.Role)
			}
		}

		rp := resolvedPoint{point: p, index: index, curve: curve}
		if p.Type == TypeDO && len(p.Links) > 0 {
			r.doLinks[index] = p.Links
		}
		if p.Role != "" {
			if _, exists := r.byRole[p.Role]; exists {
				return nil, newErr(ErrDuplicateRole, "role %q declared twice", p.Role)
			}
			r.byRole[p.Role] = rp
		}

		switch p.Type {
		case TypeDI:
			diN++
		case TypeDO:
			doN++
		case TypeAI:
			aiN++
		case TypeAO:
			aoN++
		}
	}

	for _, role := range requiredRoles {
		if _, ok := r.byRole[role]; !ok {
			return nil, newErr(ErrMissingRole, "required role %q not configured", role)
		}
	}

	return r, nil
}

func (r *Registry) resolve(role string, want PointType) (resolvedPoint, error) {
	rp, ok := r.byRole[role]
	if !ok {
		return resolvedPoint{}, newErr(ErrMissingRole, "role %q not configured", role)
	}
	if rp.point.Type != want {
		return resolvedPoint{}, newErr(ErrRoleTypeMismatch, "role %q is %s, not %s", role, rp.point.Type, want)
	}
	return rp, nil
}

// IsRoleOwned reports whether pin of the given type is owned by a
// configured role, meaning only CU (via evo_cu_hal) may write it; RE
// writes to an owned DO/AO pin must be rejected with ERR_IO_ROLE_OWNED
// (spec.md 4.4).
func (r *Registry) IsRoleOwned(t PointType, pin int) bool {
	for _, rp := range r.byRole {
		if rp.point.Type == t && rp.point.Pin == pin {
			return true
		}
	}
	return false
}

// ReadDI extracts role's bit from bank, applying NC inversion.
func (r *Registry) ReadDI(role string, bank interface{ Get(int) bool }) (bool, error) {
	rp, err := r.resolve(role, TypeDI)
	if err != nil {
		return false, err
	}
	v := bank.Get(rp.index)
	if rp.point.Logic == LogicNC {
		v = !v
	}
	return v, nil
}

// WriteDO sets role's bit in bank, applying configured inversion.
func (r *Registry) WriteDO(role string, value bool, bank interface{ Set(int, bool) }) error {
	rp, err := r.resolve(role, TypeDO)
	if err != nil {
		return err
	}
	if rp.point.Inverted {
		value = !value
	}
	bank.Set(rp.index, value)
	return nil
}

// ReadAI normalizes values[index] by (value-min)/(max-min), applies the
// curve, rescales to engineering units, and adds offset.
func (r *Registry) ReadAI(role string, values []float64) (float64, error) {
	rp, err := r.resolve(role, TypeAI)
	if err != nil {
		return 0, err
	}
	raw := values[rp.index]
	n := (raw - rp.point.Min) / (rp.point.Max - rp.point.Min)
	n = clamp01(n)
	scaled := rp.curve.Eval(n)*(rp.point.Max-rp.point.Min) + rp.point.Min + rp.point.Offset
	return scaled, nil
}

// WriteAO inverse-scales value (engineering units) to normalized form
// and writes it into values[index].
func (r *Registry) WriteAO(role string, value float64, values []float64) error {
	rp, err := r.resolve(role, TypeAO)
	if err != nil {
		return err
	}
	unscaled := (value - rp.point.Offset - rp.point.Min) / (rp.point.Max - rp.point.Min)
	n := rp.curve.Inverse(clamp01(unscaled))
	values[rp.index] = n*(rp.point.Max-rp.point.Min) + rp.point.Min
	return nil
}

// Pin returns the physical pin number bound to role, if any.
func (r *Registry) Pin(role string) (int, bool) {
	rp, ok := r.byRole[role]
	if !ok {
		return 0, false
	}
	return rp.point.Pin, true
}

// DoLinks returns the DO-index -> linked-DI-reaction-chain map built from
// every declared DO's `links` entries (spec.md 4.2), for the simulation
// driver's delayed-feedback modeling.
func (r *Registry) DoLinks() map[int][]LinkedReaction {
	return r.doLinks
}

// PinPoint pairs a configured IoPoint with its bank index, for drivers
// (e.g. the simulation driver) that need raw per-pin metadata beyond the
// role-based accessors above.
type PinPoint struct {
	Index int
	Point IoPoint
}

// Points returns every role-bound point of the given type with its bank
// index. Pins without a role are not tracked individually by the registry
// (spec.md 4.4: unroled pins are RE's to command directly), so they are
// not addressable here either.
func (r *Registry) Points(t PointType) []PinPoint {
	var out []PinPoint
	for _, rp := range r.byRole {
		if rp.point.Type == t {
			out = append(out, PinPoint{Index: rp.index, Point: rp.point})
		}
	}
	return out
}

// Roles returns every configured role name of the given point type. The
// HAL and CU cycle runners use this to apply bank-wide transforms without
// hardcoding role names (spec.md 4.2's per-cycle packing step).
func (r *Registry) Roles(t PointType) []string {
	var out []string
	for role, rp := range r.byRole {
		if rp.point.Type == t {
			out = append(out, role)
		}
	}
	return out
}

// TransformDI applies role's NC/NO inversion, reading the raw pin state
// from raw and writing the logical result into out at the same index.
func (r *Registry) TransformDI(role string, raw interface{ Get(int) bool }, out interface{ Set(int, bool) }) error {
	rp, err := r.resolve(role, TypeDI)
	if err != nil {
		return err
	}
	v := raw.Get(rp.index)
	if rp.point.Logic == LogicNC {
		v = !v
	}
	out.Set(rp.index, v)
	return nil
}

// TransformDO applies role's configured inversion, reading the logical
// value from raw and writing the pin-level result into out at the same
// index.
func (r *Registry) TransformDO(role string, raw interface{ Get(int) bool }, out interface{ Set(int, bool) }) error {
	rp, err := r.resolve(role, TypeDO)
	if err != nil {
		return err
	}
	v := raw.Get(rp.index)
	if rp.point.Inverted {
		v = !v
	}
	out.Set(rp.index, v)
	return nil
}

// TransformAI rescales role's raw reading (values[index]) into engineering
// units, in place.
func (r *Registry) TransformAI(role string, raw, out []float64) error {
	rp, err := r.resolve(role, TypeAI)
	if err != nil {
		return err
	}
	n := clamp01((raw[rp.index] - rp.point.Min) / (rp.point.Max - rp.point.Min))
	out[rp.index] = rp.curve.Eval(n)*(rp.point.Max-rp.point.Min) + rp.point.Min + rp.point.Offset
	return nil
}

// TransformAO inverse-scales role's engineering value (values[index]) into
// a normalized [0,1] output, in place.
func (r *Registry) TransformAO(role string, raw, out []float64) error {
	rp, err := r.resolve(role, TypeAO)
	if err != nil {
		return err
	}
	unscaled := clamp01((raw[rp.index] - rp.point.Offset - rp.point.Min) / (rp.point.Max - rp.point.Min))
	out[rp.index] = rp.curve.Inverse(unscaled)
	return nil
}
