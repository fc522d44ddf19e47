// Package supervisor starts, monitors, and restarts the HAL and CU
// child processes per spec.md 6.2, and tears them down cleanly on
// shutdown.
package supervisor

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/logging"
)

// Child describes one supervised OS process.
type Child struct {
	Name string
	Bin  string
	Args []string

	watchdog config.WatchdogConfig
	logger   *logging.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	started  time.Time
	restarts int
	degraded bool
}

// NewChild builds a supervised process entry. watchdog bounds its
// restart policy (spec.md 6.2); logger defaults to logging.Default().
func NewChild(name, bin string, args []string, watchdog config.WatchdogConfig, logger *logging.Logger) *Child {
	if logger == nil {
		logger = logging.Default()
	}
	return &Child{Name: name, Bin: bin, Args: args, watchdog: watchdog, logger: logger.WithModule(name)}
}

// Degraded reports whether the child has exhausted its restart budget
// and will not be restarted again automatically.
func (c *Child) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

// start launches the child process bound to ctx. Cancelling ctx sends
// SIGTERM; if the process has not exited within the watchdog's
// sigterm_timeout_s, the Go runtime forcibly SIGKILLs it and Wait
// returns regardless (Cmd.WaitDelay) — the SIGTERM-then-timeout-then-
// SIGKILL sequence spec.md 6.2 requires, without a second goroutine
// racing the one that ultimately calls Wait.
func (c *Child) start(ctx context.Context) (*exec.Cmd, error) {
	cmd := exec.CommandContext(ctx, c.Bin, c.Args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = time.Duration(c.watchdog.SigtermTimeoutS * float64(time.Second))
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cmd = cmd
	c.started = time.Now()
	c.mu.Unlock()
	c.logger.Info("child started", "pid", cmd.Process.Pid)
	return cmd, nil
}

// Run supervises the child until ctx is cancelled, restarting it with
// exponential backoff on unexpected exit (spec.md 6.2's crash-restart
// policy), the same spawn-with-backoff idiom as a hierarchical
// goroutine supervisor but driven by os/exec process exit instead of a
// function return. Run returns once ctx is cancelled (after the child
// has been signalled and reaped) or once the restart budget is spent.
func (c *Child) Run(ctx context.Context) {
	backoff := time.Duration(c.watchdog.InitialBackoffMs) * time.Millisecond
	maxBackoff := time.Duration(c.watchdog.MaxBackoffS) * time.Second
	stableRun := time.Duration(c.watchdog.StableRunS) * time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		cmd, err := c.start(ctx)
		if err != nil {
			c.logger.Error("failed to start child", "error", err)
			if c.recordAttemptAndCheckExhausted() {
				return
			}
			if !sleepOrDone(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		waitErr := cmd.Wait()

		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		ran := time.Since(c.started)
		c.mu.Unlock()

		if waitErr == nil {
			c.logger.Warn("child exited cleanly but unexpectedly, restarting")
		} else {
			c.logger.Error("child exited with error", "error", waitErr)
		}

		if ran >= stableRun {
			c.mu.Lock()
			c.restarts = 0
			c.mu.Unlock()
			backoff = time.Duration(c.watchdog.InitialBackoffMs) * time.Millisecond
		}

		if c.recordAttemptAndCheckExhausted() {
			return
		}

		c.logger.Warn("restarting child", "backoff", backoff)
		if !sleepOrDone(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

// recordAttemptAndCheckExhausted increments the restart counter and,
// if the watchdog's budget is spent, marks the child degraded.
func (c *Child) recordAttemptAndCheckExhausted() bool {
	c.mu.Lock()
	c.restarts++
	exhausted := c.restarts >= c.watchdog.MaxRestarts
	if exhausted {
		c.degraded = true
	}
	c.mu.Unlock()
	if exhausted {
		c.logger.Error("child exceeded max restarts, entering degraded state", "max_restarts", c.watchdog.MaxRestarts)
	}
	return exhausted
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
