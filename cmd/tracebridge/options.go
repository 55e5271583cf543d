// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tracebridge/lib/config"
)

// flagValues holds the command-line flags. Only flags given on the
// command line override the configuration.
type flagValues struct {
	configPath  string
	showVersion bool

	skipCapture          bool
	capturePort          int
	controllerPort       int
	retainCrashHandler   bool
	stopKillingAfter     time.Duration
	selectors            string
	selectorsFile        string
	appRestartCommand    string
	deviceRestartCommand string
	watchdogInterval     time.Duration
	metricsListen        string
	verbose              bool
	check                bool
}

func (o *flagValues) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&o.configPath, "config", "", "YAML configuration file (default: $"+config.PathEnvironmentVariable+")")
	flagSet.BoolVar(&o.showVersion, "version", false, "print the version and exit")

	flagSet.BoolVar(&o.skipCapture, "skip-capture", false, "record without connecting to the screen-capture service")
	flagSet.IntVar(&o.capturePort, "capture-port", 0, "screen-capture service port (default 1313)")
	flagSet.IntVar(&o.controllerPort, "controller-port", 0, "UI controller port (default 55555)")
	flagSet.BoolVar(&o.retainCrashHandler, "retain-crash-handler", false, "keep the app's own crash handler installed")
	flagSet.DurationVar(&o.stopKillingAfter, "stop-killing-after", 0, "stop disabling views this long after startup, 0 for at once")
	flagSet.StringVar(&o.selectors, "selectors", "", "view selectors as inline JSON")
	flagSet.StringVar(&o.selectorsFile, "selectors-file", "", "file holding the view selectors (JSON with comments)")
	flagSet.StringVar(&o.appRestartCommand, "app-restart-command", "", "shell command that restarts the app")
	flagSet.StringVar(&o.deviceRestartCommand, "device-restart-command", "", "shell command that restarts the device")
	flagSet.DurationVar(&o.watchdogInterval, "watchdog-interval", 0, "restart when no action arrives for this long (0 disables)")
	flagSet.StringVar(&o.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
	flagSet.BoolVarP(&o.verbose, "verbose", "v", false, "log at debug level")
	flagSet.BoolVar(&o.check, "check", false, "evaluate the selectors against one window file and exit")
}

// apply overrides cfg with the flags that were set.
func (o *flagValues) apply(flagSet *pflag.FlagSet, cfg *config.Config) {
	set := func(name string, apply func()) {
		if flagSet.Changed(name) {
			apply()
		}
	}
	set("skip-capture", func() { cfg.Capture.Enabled = !o.skipCapture })
	set("capture-port", func() { cfg.Capture.Port = o.capturePort })
	set("controller-port", func() { cfg.Controller.Port = o.controllerPort })
	set("retain-crash-handler", func() { cfg.Controller.RetainCrashHandler = o.retainCrashHandler })
	set("stop-killing-after", func() {
		after := config.Duration(o.stopKillingAfter)
		cfg.Controller.StopKillingAfter = &after
	})
	set("selectors", func() {
		cfg.Selectors.Inline = o.selectors
		cfg.Selectors.File = ""
	})
	set("selectors-file", func() {
		cfg.Selectors.File = o.selectorsFile
		cfg.Selectors.Inline = ""
	})
	set("app-restart-command", func() { cfg.Recovery.AppRestartCommand = o.appRestartCommand })
	set("device-restart-command", func() { cfg.Recovery.DeviceRestartCommand = o.deviceRestartCommand })
	set("watchdog-interval", func() { cfg.Recovery.WatchdogInterval = config.Duration(o.watchdogInterval) })
	set("metrics-listen", func() { cfg.Metrics.Listen = o.metricsListen })
	set("verbose", func() {
		if o.verbose {
			cfg.Logging.Level = "debug"
		}
	})
	set("check", func() { cfg.Check = o.check })
}
