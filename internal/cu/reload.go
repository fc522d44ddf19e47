package cu

import (
	"fmt"
	"time"

	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/wire"
)

// reloadBudget is the worst-case time hot reload may take (spec.md 4.3).
const reloadBudget = 120 * time.Millisecond

// ReloadState tracks whether an RPC-requested config reload is pending.
// Reload only executes while the global SafetyState is SafetyStop
// (spec.md 4.3: "hot reload is only permitted under global SafetyStop").
type ReloadState struct {
	requested bool
}

func newReloadState() *ReloadState { return &ReloadState{} }

// Request marks a reload as pending. Neither Step nor the cycle runner
// acts on the flag: the reload happens only when ReloadConfig is called,
// which clears it and refuses unless the global safety state is SafetyStop.
func (r *ReloadState) Request() { r.requested = true }

// AllowWindow is a no-op hook called each cycle the engine observes
// SafetyState==SafetyStop, kept distinct from Pending so future policy
// (e.g. requiring N consecutive SafetyStop cycles before reloading) has
// a single call site to extend.
func (r *ReloadState) AllowWindow() {}

func (r *ReloadState) Pending() bool { return r.requested }

func (r *ReloadState) clear() { r.requested = false }

// ReloadConfig re-parses and validates every config file under dir and,
// only if the engine currently observes global SafetyStop, atomically
// swaps each axis's config in place (spec.md 4.3's shadow-config
// parse+validate+atomic-swap). The axis set's identity (count and ID
// order) must be unchanged; topology changes require a full restart.
// Returns the elapsed time; a reload slower than reloadBudget is logged as
// a warning, not aborted.
func (e *Engine) ReloadConfig(dir string) (time.Duration, error) {
	start := time.Now()
	if e.SafetyState != wire.SafetySafetyStop {
		return 0, fmt.Errorf("cu: config reload requires global SafetyStop, current state is %s", e.SafetyState)
	}

	_, machine, registry, axisCfgs, err := config.LoadAll(dir, nil)
	if err != nil {
		return time.Since(start), fmt.Errorf("cu: reload validation failed: %w", err)
	}
	if len(axisCfgs) != len(e.Axes) {
		return time.Since(start), fmt.Errorf("cu: reload changes axis count (%d -> %d), restart required", len(e.Axes), len(axisCfgs))
	}
	for i, cfg := range axisCfgs {
		if cfg.Axis.ID != e.Axes[i].Cfg.Axis.ID {
			return time.Since(start), fmt.Errorf("cu: reload reorders axis identities at index %d, restart required", i)
		}
	}

	defaultStop, err := machine.GlobalSafety.ParseDefaultSafeStop()
	if err != nil {
		return time.Since(start), fmt.Errorf("cu: reload machine config invalid: %w", err)
	}

	// Atomic swap: every axis field assignment below happens within this
	// single call with no intervening Step, so a concurrent reader of e
	// from the cycle loop never observes a half-updated config set.
	for i, cfg := range axisCfgs {
		e.Axes[i].Cfg = cfg
		e.Axes[i].defaultSafeStop = defaultStop
		e.Axes[i].refreshCachedConfig()
	}
	e.Machine = machine
	e.registry = registry
	e.reload.clear()

	elapsed := time.Since(start)
	if elapsed > reloadBudget {
		e.logger.Warn("config reload exceeded budget", "elapsed", elapsed, "budget", reloadBudget)
	}
	return elapsed, nil
}
