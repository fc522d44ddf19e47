// Command evo-supervisor owns the HAL and CU process lifecycle: ordered
// startup, crash-restart with backoff, and ordered shutdown (spec.md
// 6.2). It does not itself speak the evo_* wire protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/evo-platform/evo-core/internal/config"
	"github.com/evo-platform/evo-core/internal/logging"
	"github.com/evo-platform/evo-core/internal/supervisor"
)

const version = "0.1.0"

func main() {
	var (
		configDir string
		halBin    string
		cuBin     string
		halArgs   string
		cuArgs    string
		verbose   bool
		jsonLog   bool
		showVer   bool
	)
	flag.StringVar(&configDir, "config-dir", config.DefaultDir, "directory containing config.toml, machine.toml, io.toml and axis_NN_*.toml")
	flag.StringVar(&halBin, "hal-bin", "evo-hal", "path to the evo-hal binary")
	flag.StringVar(&cuBin, "cu-bin", "evo-cu", "path to the evo-cu binary")
	flag.StringVar(&halArgs, "hal-args", "", "space-separated extra arguments passed to evo-hal")
	flag.StringVar(&cuArgs, "cu-args", "", "space-separated extra arguments passed to evo-cu")
	flag.BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	flag.BoolVar(&jsonLog, "json", false, "emit structured JSON logs instead of the text console format")
	flag.BoolVar(&showVer, "version", false, "print version and exit")
	flag.Parse()

	if showVer {
		fmt.Printf("evo-supervisor %s\n", version)
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

	sys, err := config.LoadSystemConfig(configDir)
	if err != nil {
		logger.Error("failed to load system configuration", "error", err)
		os.Exit(1)
	}

	sup := supervisor.New(supervisor.Options{
		System: sys,
		Hal:    supervisor.ProcessSpec{Bin: halBin, Args: append([]string{"--config-dir", configDir}, splitArgs(halArgs)...)},
		Cu:     supervisor.ProcessSpec{Bin: cuBin, Args: append([]string{"--config-dir", configDir}, splitArgs(cuArgs)...)},
		Logger: logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	if err := sup.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("supervisor exited with error", "error", err)
		os.Exit(1)
	}
}

func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}
