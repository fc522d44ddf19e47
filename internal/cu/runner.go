package cu

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

// mqtCycleDivisor: evo_cu_mqt is written every Nth cycle, default 10
// (spec.md 6.1 #3).
const mqtCycleDivisor = 10

// RunnerConfig configures the CU RT cycle runner, mirroring
// internal/hal.RunnerConfig's shape.
type RunnerConfig struct {
	CycleTime   time.Duration
	ConfigDir   string
	Machine     *config.MachineConfig
	Axes        []config.AxisConfig
	Registry    *ioreg.Registry
	Logger      *logging.Logger
	Metrics     *metrics.CycleMetrics
	CPUAffinity []int
}

// Runner drives one Engine through the evo_hal_cu -> Step -> evo_cu_hal
// loop at a fixed period (spec.md 4.3), escalating to a global
// SafetyStop when evo_hal_cu is missing or its heartbeat is stale.
type Runner struct {
	cfg     RunnerConfig
	cycle   time.Duration
	engine  *Engine
	logger  *logging.Logger
	metrics *metrics.CycleMetrics

	halIn   *shm.TypedReader[wire.HalToCuPayload]
	reIn    *shm.TypedReader[wire.ReToCuPayload]
	rpcIn   *shm.TypedReader[wire.RpcToCuPayload]
	halOut  *shm.TypedWriter[wire.CuToHalPayload]
	mqtOut  *shm.TypedWriter[wire.CuToMqtPayload]

	cycleCount uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunner builds the Engine and creates the cu-owned write segments.
// The hal/re/rpc-owned read segments attach lazily since those processes
// may start after CU (spec.md 4.5's supervisor starts HAL, then CU).
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

	engine := NewEngine(cfg.Machine, cfg.Axes, cfg.Registry, logger)

	halOut, err := shm.CreateWriter[wire.CuToHalPayload]("evo_cu_hal", shm.ModuleCU, shm.ModuleHAL)
	if err != nil {
		return nil, err
	}
	mqtOut, err := shm.CreateWriter[wire.CuToMqtPayload]("evo_cu_mqt", shm.ModuleCU, shm.ModuleMQT)
	if err != nil {
		halOut.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &Runner{
		cfg:     cfg,
		cycle:   cfg.CycleTime,
		engine:  engine,
		logger:  logger,
		metrics: metricsSink,
		halOut:  halOut,
		mqtOut:  mqtOut,
		ctx:     runCtx,
		cancel:  cancel,
	}
	return r, nil
}

// Engine exposes the runner's Engine, mainly for tests and the
// diagnostic/RPC-reload CLI paths.
func (r *Runner) Engine() *Engine { return r.engine }

// Run executes the cycle loop until ctx is cancelled, pinned to its own
// OS thread and, if configured, a single CPU (spec.md 4.3).
func (r *Runner) Run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if len(r.cfg.CPUAffinity) > 0 {
		var mask unix.CPUSet
		mask.Set(r.cfg.CPUAffinity[0])
		if err := unix.SchedSetaffinity(0, &mask); err != nil {
			r.logger.Warn("failed to set cu cycle CPU affinity", "error", err, "cpu", r.cfg.CPUAffinity[0])
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

func (r *Runner) Stop() { r.cancel() }

func (r *Runner) Close() error {
	r.cancel()
	if r.halIn != nil {
		r.halIn.Close()
	}
	if r.reIn != nil {
		r.reIn.Close()
	}
	if r.rpcIn != nil {
		r.rpcIn.Close()
	}
	if err := r.halOut.Close(); err != nil {
		return err
	}
	return r.mqtOut.Close()
}

// runOneCycle executes spec.md 4.3's cycle: read evo_hal_cu (escalating
// to SafetyStop on missing/stale feedback, scenario 8.2 #2), read the
// optional RE/RPC command segments, run Engine.Step, write evo_cu_hal
// every cycle and evo_cu_mqt every mqtCycleDivisor-th cycle.
func (r *Runner) runOneCycle() {
	start := time.Now()
	r.cycleCount++

	var feedback wire.HalToCuPayload
	haveFeedback := false
	if r.halIn == nil {
		reader, err := shm.AttachReader[wire.HalToCuPayload]("evo_hal_cu", shm.ModuleCU, wire.HeartbeatStaleN("evo_hal_cu"))
		if err == nil {
			r.halIn = reader
		}
	}
	if r.halIn != nil {
		v, stale, err := r.halIn.Read()
		switch {
		case err != nil:
			r.logger.Warn("evo_hal_cu read failed", "error", err)
		case stale:
			r.logger.Warn("evo_hal_cu heartbeat stale, forcing SafetyStop")
		default:
			feedback = v
			haveFeedback = true
		}
	}
	if !haveFeedback {
		r.forceSafetyStop(wire.GlobalErrHalCommunication)
	}

	var re wire.ReToCuPayload
	hasRE := false
	if r.reIn == nil {
		if reader, err := shm.AttachReader[wire.ReToCuPayload]("evo_re_cu", shm.ModuleCU, wire.HeartbeatStaleN("evo_re_cu")); err == nil {
			r.reIn = reader
		}
	}
	if r.reIn != nil {
		if v, stale, err := r.reIn.Read(); err == nil && !stale {
			re, hasRE = v, true
		}
	}

	var rpc wire.RpcToCuPayload
	hasRPC := false
	if r.rpcIn == nil {
		if reader, err := shm.AttachReader[wire.RpcToCuPayload]("evo_rpc_cu", shm.ModuleCU, wire.HeartbeatStaleN("evo_rpc_cu")); err == nil {
			r.rpcIn = reader
		}
	}
	if r.rpcIn != nil {
		if v, stale, err := r.rpcIn.Read(); err == nil && !stale {
			rpc, hasRPC = v, true
		}
	}

	result := r.engine.Step(start, r.cycle, feedback, re, hasRE, rpc, hasRPC)
	r.halOut.Write(&result.ToHal)

	if r.cycleCount%mqtCycleDivisor == 0 {
		r.mqtOut.Write(&result.ToMqt)
	}

	dur := time.Since(start)
	overran := r.metrics.RecordCycle(uint64(dur.Nanoseconds()))
	if overran {
		r.logger.Warn("cu cycle overran budget", "duration", dur, "budget", r.cycle)
		r.forceSafetyStop(wire.GlobalErrCycleOverrun)
	}
}

// forceSafetyStop records a global fault the Engine honors every cycle
// until an operator-issued RpcCommandReset clears it (spec.md 7, 8.2 #2).
func (r *Runner) forceSafetyStop(code wire.GlobalErrorCode) {
	if r.engine.GlobalFault() != code {
		r.logger.Error("forcing global SafetyStop", "reason", code.String())
	}
	r.engine.SetExternalFault(code)
}
