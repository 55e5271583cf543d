// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/tracebridge/lib/layout"
)

// PathEnvironmentVariable names the configuration file when --config
// is not given.
const PathEnvironmentVariable = "TRACEBRIDGE_CONFIG"

// Config is the bridge configuration.
type Config struct {
	Capture    CaptureConfig    `yaml:"capture"`
	Controller ControllerConfig `yaml:"controller"`
	Selectors  SelectorsConfig  `yaml:"selectors"`
	Recovery   RecoveryConfig   `yaml:"recovery"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`

	// Check runs the diagnostic selector check instead of the bridge.
	// Only the environment and flags set it.
	Check bool `yaml:"-"`
}

// CaptureConfig configures the screen-capture client.
type CaptureConfig struct {
	// Enabled turns capture, and with it screenshots, on.
	// Default: true
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	// Default: 1313
	Port int `yaml:"port"`
}

// ControllerConfig configures the in-app controller client.
type ControllerConfig struct {
	Host string `yaml:"host"`
	// Default: 55555
	Port int `yaml:"port"`

	// RetainCrashHandler leaves the app's own crash handler installed.
	RetainCrashHandler bool `yaml:"retain_crash_handler"`

	// StopKillingAfter ends view suppression this long after startup.
	// Nil never ends it; zero ends it at once.
	StopKillingAfter *Duration `yaml:"stop_killing_after"`
}

// StopKilling reports when view suppression ends, if it ends at all.
func (c ControllerConfig) StopKilling() (time.Duration, bool) {
	if c.StopKillingAfter == nil {
		return 0, false
	}
	return c.StopKillingAfter.Std(), true
}

// SelectorsConfig names the view selectors. At most one of the fields
// may be set.
type SelectorsConfig struct {
	// Inline is the selector list as JSON.
	Inline string `yaml:"inline"`

	// File is a JSON file holding the selector list. Comments and
	// trailing commas are allowed.
	File string `yaml:"file"`
}

// RecoveryConfig configures recovery commands and the watchdog.
type RecoveryConfig struct {
	// AppRestartCommand and DeviceRestartCommand are run with sh -c.
	AppRestartCommand    string `yaml:"app_restart_command"`
	DeviceRestartCommand string `yaml:"device_restart_command"`

	// Default: 10s
	AppRestartTimeout Duration `yaml:"app_restart_timeout"`
	// Default: 90s
	DeviceRestartTimeout Duration `yaml:"device_restart_timeout"`

	// WatchdogInterval enables the watchdog when positive.
	WatchdogInterval Duration `yaml:"watchdog_interval"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address to serve /metrics on. Empty disables it.
	Listen string `yaml:"listen"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    1313,
		},
		Controller: ControllerConfig{
			Host: "127.0.0.1",
			Port: 55555,
		},
		Recovery: RecoveryConfig{
			AppRestartTimeout:    Duration(10 * time.Second),
			DeviceRestartTimeout: Duration(90 * time.Second),
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, the file at path (or
// the one named by TRACEBRIDGE_CONFIG when path is empty, if any), and
// the legacy environment variables read through lookupEnv.
func Load(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	if path == "" {
		path, _ = lookupEnv(PathEnvironmentVariable)
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnvironment(lookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML file over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnvironment applies the legacy environment variables.
func (c *Config) ApplyEnvironment(lookupEnv func(string) (string, bool)) error {
	var errs []error
	integer := func(name string, apply func(int64)) {
		value, ok := lookupEnv(name)
		if !ok {
			return
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		apply(n)
	}
	text := func(name string, apply func(string)) {
		if value, ok := lookupEnv(name); ok {
			apply(value)
		}
	}

	if _, ok := lookupEnv("SKIP_MINICAP"); ok {
		c.Capture.Enabled = false
	}
	integer("MINICAP_PORT", func(n int64) { c.Capture.Port = int(n) })
	integer("CTRL_PORT", func(n int64) { c.Controller.Port = int(n) })
	text("RETAIN_CRASH_HANDLER", func(v string) { c.Controller.RetainCrashHandler = v == "1" })
	integer("DONT_KILL_AFTER", func(n int64) {
		after := Milliseconds(n)
		c.Controller.StopKillingAfter = &after
	})
	text("XPATH_BLKLST", func(v string) { c.Selectors.Inline = v })
	text("APP_RESTART_COMMAND", func(v string) { c.Recovery.AppRestartCommand = v })
	text("DEV_RESTART_COMMAND", func(v string) { c.Recovery.DeviceRestartCommand = v })
	integer("WATCHDOG_INTV", func(n int64) { c.Recovery.WatchdogInterval = Milliseconds(n) })
	if _, ok := lookupEnv("MODE_CHECK_XPATH"); ok {
		c.Check = true
	}

	return errors.Join(errs...)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	for name, port := range map[string]int{"capture.port": c.Capture.Port, "controller.port": c.Controller.Port} {
		if port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s must be between 1 and 65535, got %d", name, port))
		}
	}
	durations := map[string]Duration{
		"recovery.app_restart_timeout":    c.Recovery.AppRestartTimeout,
		"recovery.device_restart_timeout": c.Recovery.DeviceRestartTimeout,
		"recovery.watchdog_interval":      c.Recovery.WatchdogInterval,
	}
	if c.Controller.StopKillingAfter != nil {
		durations["controller.stop_killing_after"] = *c.Controller.StopKillingAfter
	}
	for name, d := range durations {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", name, d))
		}
	}
	if c.Selectors.Inline != "" && c.Selectors.File != "" {
		errs = append(errs, errors.New("selectors.inline and selectors.file are mutually exclusive"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// CaptureAddress returns the capture service's host:port.
func (c *Config) CaptureAddress() string {
	return net.JoinHostPort(c.Capture.Host, strconv.Itoa(c.Capture.Port))
}

// ControllerAddress returns the controller's host:port.
func (c *Config) ControllerAddress() string {
	return net.JoinHostPort(c.Controller.Host, strconv.Itoa(c.Controller.Port))
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// LoadSelectors parses the configured selectors. It returns nil when
// none are configured.
func (c *Config) LoadSelectors() (*layout.Selectors, error) {
	var data []byte
	switch {
	case c.Selectors.Inline != "":
		data = []byte(c.Selectors.Inline)
	case c.Selectors.File != "":
		var err error
		if data, err = os.ReadFile(c.Selectors.File); err != nil {
			return nil, fmt.Errorf("reading selectors: %w", err)
		}
	default:
		return nil, nil
	}
	selectors, err := layout.ParseSelectors(data)
	if err != nil {
		return nil, fmt.Errorf("selectors: %w", err)
	}
	return selectors, nil
}

// LogValue lists the effective settings for a startup log record.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("capture_enabled", c.Capture.Enabled),
		slog.String("capture_address", c.CaptureAddress()),
		slog.String("controller_address", c.ControllerAddress()),
		slog.Bool("retain_crash_handler", c.Controller.RetainCrashHandler),
		stopKillingAttr(c.Controller),
		slog.String("selectors_inline", c.Selectors.Inline),
		slog.String("selectors_file", c.Selectors.File),
		slog.String("app_restart_command", c.Recovery.AppRestartCommand),
		slog.String("device_restart_command", c.Recovery.DeviceRestartCommand),
		slog.Duration("watchdog_interval", c.Recovery.WatchdogInterval.Std()),
		slog.String("metrics_listen", c.Metrics.Listen),
		slog.String("log_level", c.Logging.Level),
	)
}

func stopKillingAttr(c ControllerConfig) slog.Attr {
	after, ok := c.StopKilling()
	if !ok {
		return slog.String("stop_killing_after", "never")
	}
	return slog.Duration("stop_killing_after", after)
}
