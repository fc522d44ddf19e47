package cu

import (
	"time"

	"github.com/evo-platform/evo-core/internal/wire"
)

// sourceTimeout is how long a source's lock survives without a fresh
// non-Nop command before it is released (spec.md 4.3's source locking:
// "a stale heartbeat or an explicit Nop releases the lock").
const sourceTimeout = 500 * time.Millisecond

// SourceHeartbeats tracks each source's last-seen time for staleness
// detection, independent of any one axis's lock.
type SourceHeartbeats struct {
	lastRE, lastRPC time.Time
}

func (h *SourceHeartbeats) Touch(src SourceID, now time.Time) {
	switch src {
	case SourceRE:
		h.lastRE = now
	case SourceRPC:
		h.lastRPC = now
	}
}

func (h *SourceHeartbeats) Stale(src SourceID, now time.Time) bool {
	var last time.Time
	switch src {
	case SourceRE:
		last = h.lastRE
	case SourceRPC:
		last = h.lastRPC
	default:
		return false
	}
	return last.IsZero() || now.Sub(last) > sourceTimeout
}

// AcquireLock arbitrates one axis's command source for this cycle
// (spec.md 4.3's source locking): a Nop command never takes or refreshes
// a lock, and a Nop from the current lock holder releases it; a non-Nop command from the currently-locking source refreshes
// it; a non-Nop command from any other source is rejected with
// CommandErrSourceLocked while the lock holder's heartbeat is still
// fresh, and otherwise takes the lock over (stale-heartbeat handoff).
// Manual jog additionally requires MachineState==Manual, enforced by the
// caller via StepOperational before this is reached.
func AcquireLock(a *AxisRuntime, heartbeats *SourceHeartbeats, src SourceID, isNop bool, now time.Time) (granted bool) {
	if isNop {
		if a.LockedBy == src {
			a.LockedBy = SourceNone
		}
		return false
	}
	heartbeats.Touch(src, now)

	if a.LockedBy == SourceNone || a.LockedBy == src {
		a.LockedBy = src
		a.CommandErr &^= wire.CommandErrSourceLocked
		return true
	}
	if heartbeats.Stale(a.LockedBy, now) {
		a.LockedBy = src
		a.CommandErr &^= wire.CommandErrSourceLocked
		return true
	}
	a.CommandErr |= wire.CommandErrSourceLocked
	return false
}

// ReleaseIfSource releases the lock if currently held by src, for a caller
// that learns a source has finished with the axis.
func ReleaseIfSource(a *AxisRuntime, src SourceID) {
	if a.LockedBy == src {
		a.LockedBy = SourceNone
	}
}
