package ioreg

// perAxisFunctions is the closed set of role function names that carry a
// trailing axis number (1-based). globalFunctions carry none. Any other
// name parses as Custom.
var perAxisFunctions = map[string]bool{
	"LimitMin":        true,
	"LimitMax":        true,
	"BrakeOut":        true,
	"HomeSwitch":      true,
	"HomeIndex":       true,
	"TailstockIn":     true,
	"TailstockOut":    true,
	"CouplingEngaged": true,
	"GuardAxis":       true,
}

var globalFunctions = map[string]bool{
	"EStop":      true,
	"PressureOk": true,
	"GuardClosed": true,
}

// IoRole is a parsed functional role name: either a bare global function
// (EStop, PressureOk), a per-axis function with its 1-based axis number
// (LimitMin3, BrakeOut1), or a Custom name that matches no known
// function (spec.md 3.3).
type IoRole struct {
	Raw        string
	Function   string
	AxisNumber int // 0 for global roles; 1-based for per-axis roles
	Custom     bool
}

// ParseIoRole splits s into a function name and trailing axis number by
// stripping the trailing decimal run, then matches the prefix against the
// known function sets. An unmatched prefix, or a per-axis function with
// no trailing number (or vice versa), parses as Custom(s).
func ParseIoRole(s string) IoRole {
	prefix, numStr := splitTrailingDigits(s)

	if numStr == "" {
		if globalFunctions[prefix] {
			return IoRole{Raw: s, Function: prefix}
		}
		return IoRole{Raw: s, Custom: true}
	}

	if perAxisFunctions[prefix] {
		n := 0
		for _, c := range numStr {
			n = n*10 + int(c-'0')
		}
		if n > 0 {
			return IoRole{Raw: s, Function: prefix, AxisNumber: n}
		}
	}
	return IoRole{Raw: s, Custom: true}
}

// String renders the role back to its canonical textual form.
func (r IoRole) String() string {
	if r.Custom {
		return r.Raw
	}
	if r.AxisNumber > 0 {
		return r.Function + itoa(r.AxisNumber)
	}
	return r.Function
}

func splitTrailingDigits(s string) (prefix, digits string) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	return s[:i], s[i:]
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}
