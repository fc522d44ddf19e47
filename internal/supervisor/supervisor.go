package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	shm "github.com/evo-platform/evo-core"
	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/logging"
)

// shmDir mirrors the root shm package's private segment directory; the
// supervisor needs it only to sweep stale segment files left behind by
// a SIGKILLed child, which never gets to run its own TypedWriter.Close.
const shmDir = "/dev/shm"

// ProcessSpec names the binary and arguments used to launch one of the
// HAL/CU child processes.
type ProcessSpec struct {
	Bin  string
	Args []string
}

// Options configures a Supervisor.
type Options struct {
	System *config.SystemConfig
	Hal    ProcessSpec
	Cu     ProcessSpec
	Logger *logging.Logger
}

// Supervisor owns the HAL and CU child processes: ordered startup (HAL
// first, then CU once HAL's feedback segment is live), ordered shutdown,
// and crash-restart bounded by config.WatchdogConfig (spec.md 6.2).
type Supervisor struct {
	opts   Options
	logger *logging.Logger

	hal *Child
	cu  *Child

	mu   sync.Mutex
	done chan struct{}
}

// New builds a Supervisor from Options. Options.System must be non-nil.
func New(opts Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Supervisor{
		opts:   opts,
		logger: logger,
		hal:    NewChild("hal", opts.Hal.Bin, opts.Hal.Args, opts.System.Watchdog, logger),
		cu:     NewChild("cu", opts.Cu.Bin, opts.Cu.Args, opts.System.Watchdog, logger),
		done:   make(chan struct{}),
	}
}

// Hal and Cu expose the supervised children for liveness inspection
// (Degraded()) by diagnostics/dashboard surfaces.
func (s *Supervisor) Hal() *Child { return s.hal }
func (s *Supervisor) Cu() *Child  { return s.cu }

// Run starts HAL, waits for its evo_hal_cu feedback segment to appear
// with a live writer (bounded by Watchdog.HalReadyTimeoutS), then starts
// CU, and supervises both with independent restart loops until ctx is
// cancelled. Shutdown stops CU first and HAL after CU has exited. On
// return, both children have been stopped and any stale
// evo_* segment files left by a killed child have been swept.
func (s *Supervisor) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.sweepStaleSegments()

	// Children run on contexts detached from ctx so that shutdown can stop
	// CU first and HAL only after CU has exited.
	childCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	cuCtx, cancelCu := context.WithCancel(childCtx)
	defer cancelCu()

	var wg, cuWg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.hal.Run(childCtx)
	}()

	ready := time.Duration(s.opts.System.Watchdog.HalReadyTimeoutS * float64(time.Second))
	attempts := int(ready/20/time.Millisecond) + 1
	if _, ok := shm.WaitForSegment("evo_hal_cu", attempts); !ok {
		s.logger.Error("HAL did not bring up evo_hal_cu within the ready timeout")
		cancel()
		wg.Wait()
		return fmt.Errorf("supervisor: HAL not ready after %s", ready)
	}
	s.logger.Info("HAL ready, starting CU")

	cuWg.Add(1)
	go func() {
		defer cuWg.Done()
		s.cu.Run(cuCtx)
	}()

	select {
	case <-ctx.Done():
	case <-s.degradedSignal(childCtx):
	}

	cancelCu()
	cuWg.Wait()
	cancel()
	wg.Wait()
	return ctx.Err()
}

// degradedSignal closes its returned channel once either child has
// exhausted its restart budget, so Run tears the whole pair down
// rather than leaving one half orphaned.
func (s *Supervisor) degradedSignal(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.hal.Degraded() || s.cu.Degraded() {
					return
				}
			}
		}
	}()
	return ch
}

// sweepStaleSegments removes evo_* segment files with no live writer,
// the cleanup a graceful TypedWriter.Close would have performed had the
// owning process not been force-killed.
func (s *Supervisor) sweepStaleSegments() {
	segs, err := shm.Discover()
	if err != nil {
		return
	}
	for _, seg := range segs {
		if seg.WriterAlive {
			continue
		}
		path := filepath.Join(shmDir, seg.Name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove stale segment", "segment", seg.Name, "error", err)
		}
	}
}

// Done is closed once Run has returned.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
