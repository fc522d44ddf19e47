// Command evo-hal runs the Hardware Abstraction Layer process: it drives
// the one selected HAL driver through the 1ms evo_cu_hal -> Cycle ->
// evo_hal_cu loop (spec.md 4.2).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "github.com/evo-platform/evo-core/internal/hal/simdrv"

	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/hal"
	"github.com/evo-platform/evo-core/internal/logging"
)

const version = "0.1.0"

type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return fmt.Sprint([]string(*s)) }
func (s *stringSliceFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var (
		configDir string
		simulate  bool
		drivers   stringSliceFlag
		verbose   bool
		jsonLog   bool
		showVer   bool
	)
	flag.StringVar(&configDir, "config-dir", config.DefaultDir, "directory containing config.toml, machine.toml, io.toml and axis_NN_*.toml")
	flag.BoolVar(&simulate, "simulate", false, "run the in-memory simulation driver instead of real hardware")
	flag.BoolVar(&simulate, "s", false, "shorthand for --simulate")
	flag.Var(&drivers, "driver", "select a HAL backend by name (repeatable)")
	flag.BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	flag.BoolVar(&jsonLog, "json", false, "emit structured JSON logs instead of the text console format")
	flag.BoolVar(&showVer, "version", false, "print version and exit")
	flag.Parse()

	if showVer {
		fmt.Printf("evo-hal %s\n", version)
		return
	}

	logConfig := logging.DefaultConfig()
	if verbose {
		logConfig.Level = logging.LevelDebug
	}
	if jsonLog {
		logConfig.Format = "json"
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	sys, machine, registry, axes, err := config.LoadAll(configDir, nil)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	selected, err := hal.Select(hal.SelectConfig{
		Simulate:        simulate,
		ExplicitDrivers: []string(drivers),
		MachineDrivers:  machine.Hal.Drivers,
	})
	if err != nil {
		logger.Error("failed to select HAL driver", "error", err)
		os.Exit(1)
	}
	if len(selected) != 1 {
		logger.Error("evo-hal currently supports exactly one driver per process", "selected", len(selected))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	affinity := []int{0}
	if runtime.NumCPU() < 2 {
		affinity = nil
	}

	runner, err := hal.NewRunner(ctx, hal.RunnerConfig{
		Driver:      selected[0],
		Machine:     machine,
		Axes:        axes,
		Registry:    registry,
		Logger:      logger,
		CPUAffinity: affinity,
	})
	if err != nil {
		logger.Error("failed to start HAL runner", "error", err)
		os.Exit(1)
	}
	defer runner.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
		runner.Stop()
		shutdownTimeout := time.Duration(sys.Watchdog.SigtermTimeoutS * float64(time.Second))
		select {
		case <-errCh:
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out, exiting anyway")
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("HAL runner exited with error", "error", err)
			os.Exit(1)
		}
	}
}
