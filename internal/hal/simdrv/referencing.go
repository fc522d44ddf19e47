package simdrv

import (
	"time"

	"github.com/evo-platform/evo-core/internal/wire"
)

// RefState is the referencing/homing state machine's state (spec.md 4.2).
type RefState int

const (
	Unreferenced RefState = iota
	SearchingSwitch
	SearchingIndex
	Referenced
	RefError
)

// Referencer drives one axis's homing sequence using virtual switch/index
// positions from config, comparing them against the axis's own simulated
// actual position each cycle.
type Referencer struct {
	Mode              wire.RefMode
	Direction         wire.ApproachDirection
	Speed             float64
	SwitchPosition    float64
	IndexPosition     float64
	Timeout           time.Duration

	State   RefState
	elapsed time.Duration
}

// NewReferencer builds a Referencer from homing config; a Mode of
// wire.RefModeNo starts already Referenced (no homing required).
func NewReferencer(mode wire.RefMode, dir wire.ApproachDirection, speed, switchPos, indexPos float64, timeout time.Duration) *Referencer {
	r := &Referencer{
		Mode: mode, Direction: dir, Speed: speed,
		SwitchPosition: switchPos, IndexPosition: indexPos, Timeout: timeout,
	}
	if mode == wire.RefModeNo {
		r.State = Referenced
	} else {
		r.State = Unreferenced
	}
	return r
}

// Start begins (or restarts) the homing sequence.
func (r *Referencer) Start() {
	if r.Mode == wire.RefModeNo {
		r.State = Referenced
		return
	}
	r.elapsed = 0
	switch r.Mode {
	case wire.RefModeSwitchOnly, wire.RefModeSwitchThenIndex, wire.RefModeLimitOnly, wire.RefModeLimitThenIndex:
		r.State = SearchingSwitch
	case wire.RefModeIndexOnly:
		r.State = SearchingIndex
	}
}

// sign returns the velocity sign for the configured approach direction.
func (r *Referencer) sign() float64 {
	if r.Direction == wire.ApproachNegative {
		return -1
	}
	return 1
}

// Step advances the homing sequence by dt, moving physics toward the next
// target sensor position. Returns the velocity command the axis physics
// should apply this cycle (0 once Referenced or RefError).
func (r *Referencer) Step(actual float64, dt time.Duration) (velocityCmd float64) {
	switch r.State {
	case Unreferenced, Referenced, RefError:
		return 0
	}

	r.elapsed += dt
	if r.Timeout > 0 && r.elapsed > r.Timeout {
		r.State = RefError
		return 0
	}

	switch r.State {
	case SearchingSwitch:
		if crossed(actual, r.SwitchPosition, r.sign()) {
			if r.Mode == wire.RefModeSwitchOnly || r.Mode == wire.RefModeLimitOnly {
				r.State = Referenced
				return 0
			}
			r.State = SearchingIndex
		}
		return r.sign() * r.Speed
	case SearchingIndex:
		if crossed(actual, r.IndexPosition, r.sign()) {
			r.State = Referenced
			return 0
		}
		return r.sign() * r.Speed
	}
	return 0
}

// crossed reports whether actual has reached or passed target when moving
// in the given signed direction.
func crossed(actual, target, dir float64) bool {
	if dir >= 0 {
		return actual >= target
	}
	return actual <= target
}

// FaultCode maps RefError to the wire fault taxonomy.
func (r *Referencer) FaultCode() wire.FaultCode {
	if r.State == RefError {
		return wire.FaultRefTimeout
	}
	return wire.FaultNone
}
