// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// tracebridge records ground-truth UI traces from an Android device
// under automated exploration.
//
// It connects to the device's screen-capture service and to the UI
// controller embedded in the app under test. For every user action the
// controller reports, the bridge writes the window hierarchy that
// follows it as <output-dir>/<ts>.json and the closest earlier
// screenshot as <screen-dir>/<ts>.jpg. Views that match the configured
// selectors are disabled as soon as they appear, and a matching layout
// hash restarts the app. A watchdog restarts the app, and eventually
// the device, when no action arrives for a whole interval.
//
// With --check, tracebridge instead evaluates the selectors against one
// recorded window file and prints the decision.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tracebridge/bridge"
	"github.com/bureau-foundation/tracebridge/lib/config"
	"github.com/bureau-foundation/tracebridge/lib/logging"
	"github.com/bureau-foundation/tracebridge/lib/process"
	"github.com/bureau-foundation/tracebridge/lib/recorder"
	"github.com/bureau-foundation/tracebridge/lib/version"
)

// exitUsage is returned when the output directory is missing.
const exitUsage = 100

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(arguments []string) error {
	flagSet := pflag.NewFlagSet("tracebridge", pflag.ContinueOnError)
	var flags flagValues
	flags.register(flagSet)

	if err := flagSet.Parse(arguments); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if flags.showVersion {
		fmt.Printf("tracebridge %s\n", version.Info())
		return nil
	}

	cfg, err := config.Load(flags.configPath, os.LookupEnv)
	if err != nil {
		return err
	}
	flags.apply(flagSet, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	selectors, err := cfg.LoadSelectors()
	if err != nil {
		return err
	}

	args := flagSet.Args()
	if cfg.Check {
		if len(args) < 1 {
			return process.Exit(exitUsage, "--check requires a window file")
		}
		return runCheck(os.Stdout, selectors, args[0])
	}

	if len(args) < 1 {
		printHelp(flagSet)
		return process.Exit(exitUsage, "output directory required")
	}
	if len(args) > 2 {
		return fmt.Errorf("unexpected argument: %s", args[2])
	}
	screenDir := ""
	if len(args) == 2 {
		screenDir = args[1]
	}
	rec, err := recorder.New(args[0], screenDir)
	if err != nil {
		return err
	}

	level, _ := cfg.LogLevel()
	logger := logging.New(os.Stderr, level)
	slog.SetDefault(logger)
	logger.Info("tracebridge starting",
		"build", version.LogValue(),
		"config", cfg,
		"output_dir", rec.Dir(),
		"screen_dir", rec.ScreenDir(),
		"selectors", selectors.Len(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := &bridge.Bridge{
		Config:    cfg,
		Selectors: selectors,
		Recorder:  rec,
		Logger:    logger,
	}
	return b.Run(ctx)
}

func printHelp(flagSet *pflag.FlagSet) {
	printUsage(os.Stderr)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `tracebridge - record UI traces from an app under exploration

Usage:
  tracebridge [flags] <output-dir> [screen-dir]
  tracebridge --check [flags] <window.json>

Window captures are written to <output-dir>/<ts>.json and screenshots
to <screen-dir>/<ts>.jpg (default: <output-dir>). Both directories
must exist.

Configuration is read from --config (or $TRACEBRIDGE_CONFIG), then
from the SKIP_MINICAP, MINICAP_PORT, CTRL_PORT, RETAIN_CRASH_HANDLER,
DONT_KILL_AFTER, XPATH_BLKLST, APP_RESTART_COMMAND,
DEV_RESTART_COMMAND, WATCHDOG_INTV and MODE_CHECK_XPATH environment
variables, then from flags.

Flags:
`)
}
