package hal

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	shm "github.com/evo-platform/evo-core"
	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/ioreg"
	"github.com/evo-platform/evo-core/internal/logging"
	"github.com/evo-platform/evo-core/internal/metrics"
	"github.com/evo-platform/evo-core/internal/wire"
)

// RunnerConfig configures the RT cycle runner.
type RunnerConfig struct {
	CycleTime   time.Duration // default 1ms if zero
	Driver      HalDriver
	Machine     *config.MachineConfig
	Axes        []config.AxisConfig
	Registry    *ioreg.Registry
	Logger      *logging.Logger
	Metrics     *metrics.CycleMetrics
	CPUAffinity []int // pinned CPU set for the RT thread, nil = no affinity
}

// Runner drives one HalDriver through the evo_cu_hal -> Cycle -> evo_hal_cu
// loop at a fixed period (spec.md 4.2). It owns the hal-side segments;
// evo_cu_hal may not exist yet when the runner starts (CU starts after HAL
// in supervisor order), so the reader side attaches lazily and falls back
// to zero commands until CU comes up.
type Runner struct {
	cfg      RunnerConfig
	cycle    time.Duration
	driver   HalDriver
	registry *ioreg.Registry
	logger   *logging.Logger
	metrics  *metrics.CycleMetrics

	reader  *shm.TypedReader[wire.CuToHalPayload]
	writer  *shm.TypedWriter[wire.HalToCuPayload]
	mqtOut  *shm.TypedWriter[wire.HalToMqtPayload]

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunner initializes the driver and creates the hal-owned write
// segments. The CU-owned read segment is attached lazily from the cycle
// loop, since CU may not be running yet.
func NewRunner(ctx context.Context, cfg RunnerConfig) (*Runner, error) {
	if cfg.CycleTime <= 0 {
		cfg.CycleTime = time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	metricsSink := cfg.Metrics
	if metricsSink == nil {
		metricsSink = metrics.NewCycleMetrics(uint64(cfg.CycleTime.Nanoseconds()))
	}

	if err := cfg.Driver.Init(cfg.Machine, cfg.Axes, cfg.Registry); err != nil {
		return nil, err
	}

	writer, err := shm.CreateWriter[wire.HalToCuPayload]("evo_hal_cu", shm.ModuleHAL, shm.ModuleCU)
	if err != nil {
		return nil, err
	}
	mqtOut, err := shm.CreateWriter[wire.HalToMqtPayload]("evo_hal_mqt", shm.ModuleHAL, shm.ModuleMQT)
	if err != nil {
		writer.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &Runner{
		cfg:      cfg,
		cycle:    cfg.CycleTime,
		driver:   cfg.Driver,
		registry: cfg.Registry,
		logger:   logger,
		metrics:  metricsSink,
		writer:   writer,
		mqtOut:   mqtOut,
		ctx:      runCtx,
		cancel:   cancel,
	}
	return r, nil
}

// Run executes the cycle loop until ctx is cancelled. It pins the calling
// goroutine to its OS thread and, if configured, to a single CPU, the same
// way a dedicated RT thread is normally obtained.
func (r *Runner) Run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if len(r.cfg.CPUAffinity) > 0 {
		var mask unix.CPUSet
		mask.Set(r.cfg.CPUAffinity[0])
		if err := unix.SchedSetaffinity(0, &mask); err != nil {
			r.logger.Warn("failed to set hal cycle CPU affinity", "error", err, "cpu", r.cfg.CPUAffinity[0])
		}
	}

	ticker := time.NewTicker(r.cycle)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return nil
		case <-ticker.C:
			r.runOneCycle()
		}
	}
}

// Stop cancels the cycle loop; callers should then call Close.
func (r *Runner) Stop() { r.cancel() }

// Close releases the driver and the hal-owned segments.
func (r *Runner) Close() error {
	r.cancel()
	if r.reader != nil {
		r.reader.Close()
	}
	driverErr := r.driver.Shutdown()
	if err := r.writer.Close(); err != nil {
		return err
	}
	if err := r.mqtOut.Close(); err != nil {
		return err
	}
	return driverErr
}

// runOneCycle executes the six steps from spec.md 4.2: read commands
// (falling back to zero if CU isn't up), unpack, run the driver, pack the
// resulting status (applying DI/AI registry transforms), write evo_hal_cu,
// and write the evo_hal_mqt diagnostic snapshot.
func (r *Runner) runOneCycle() {
	start := time.Now()

	var commands wire.CuToHalPayload
	if r.reader == nil {
		reader, err := shm.AttachReader[wire.CuToHalPayload]("evo_cu_hal", shm.ModuleHAL, wire.HeartbeatStaleN("evo_cu_hal"))
		if err == nil {
			r.reader = reader
		}
	}
	if r.reader != nil {
		v, stale, err := r.reader.Read()
		if err != nil {
			if !shm.IsCode(err, shm.CodeSegmentNotFound) {
				r.logger.Warn("evo_cu_hal read failed, using zero commands", "error", err)
			}
		} else {
			commands = v
			if stale {
				r.logger.Warn("evo_cu_hal heartbeat stale, using last-read commands")
			}
		}
	}

	in := unpackCommands(&commands)
	status := r.driver.Cycle(in, r.cycle)

	out := r.packStatus(&status)
	r.writer.Write(out)

	dur := time.Since(start)
	overran := r.metrics.RecordCycle(uint64(dur.Nanoseconds()))
	if overran {
		r.logger.Warn("hal cycle overran budget", "duration", dur, "budget", r.cycle)
	}

	mqt := wire.HalToMqtPayload{
		HalToCu:        *out,
		CycleTimeNanos: uint64(dur.Nanoseconds()),
	}
	mqt.DoBank = in.DoBank
	mqt.AoValues = in.AoValues
	for i := 0; i < status.AxisCount && i < wire.MaxAxes; i++ {
		mqt.DriverState[i] = uint8(status.Axes[i].DriveStatus)
	}
	r.mqtOut.Write(&mqt)
}

// unpackCommands converts the wire payload into the driver-facing form.
func unpackCommands(p *wire.CuToHalPayload) *HalCommands {
	return &HalCommands{
		Axes:      p.Axes,
		DoBank:    p.DoBank,
		AoValues:  p.AoValues,
		AxisCount: int(p.AxisCount),
	}
}

// packStatus converts a driver's HalStatus into the evo_hal_cu wire
// payload, applying NC/NO inversion for every configured DI role and
// analog-curve scaling for every configured AI role. Unconfigured bits and
// channels are copied through unchanged.
func (r *Runner) packStatus(s *HalStatus) *wire.HalToCuPayload {
	out := &wire.HalToCuPayload{
		Axes:      s.Axes,
		DiBank:    s.DiBank,
		AiValues:  s.AiValues,
		AxisCount: uint32(s.AxisCount),
	}
	if r.registry == nil {
		return out
	}
	raw := s.DiBank
	for _, role := range r.registry.Roles(ioreg.TypeDI) {
		if err := r.registry.TransformDI(role, &raw, &out.DiBank); err != nil {
			r.logger.Error("TransformDI failed", "role", role, "error", err)
		}
	}
	rawAI := s.AiValues
	for _, role := range r.registry.Roles(ioreg.TypeAI) {
		if err := r.registry.TransformAI(role, rawAI[:], out.AiValues[:]); err != nil {
			r.logger.Error("TransformAI failed", "role", role, "error", err)
		}
	}
	return out
}
