// Command evo-cu runs the Control Unit process: the per-axis state
// machines and control engine driving the evo_hal_cu -> Step ->
// evo_cu_hal loop (spec.md 4.3).
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

	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/cu"
	"github.com/evo-platform/evo-core/internal/logging"
)

const version = "0.1.0"

func main() {
	var (
		configDir string
		verbose   bool
		jsonLog   bool
		showVer   bool
	)
	flag.StringVar(&configDir, "config-dir", config.DefaultDir, "directory containing config.toml, machine.toml, io.toml and axis_NN_*.toml")
	flag.BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	flag.BoolVar(&jsonLog, "json", false, "emit structured JSON logs instead of the text console format")
	flag.BoolVar(&showVer, "version", false, "print version and exit")
	flag.Parse()

	if showVer {
		fmt.Printf("evo-cu %s\n", version)
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	affinity := []int{1}
	if runtime.NumCPU() < 2 {
		affinity = nil
	}

	runner, err := cu.NewRunner(ctx, cu.RunnerConfig{
		ConfigDir:   configDir,
		Machine:     machine,
		Axes:        axes,
		Registry:    registry,
		Logger:      logger,
		CPUAffinity: affinity,
	})
	if err != nil {
		logger.Error("failed to start CU runner", "error", err)
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
			logger.Error("CU runner exited with error", "error", err)
			os.Exit(1)
		}
	}
}
