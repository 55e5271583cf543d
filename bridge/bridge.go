// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bureau-foundation/tracebridge/capture"
	"github.com/bureau-foundation/tracebridge/controller"
	"github.com/bureau-foundation/tracebridge/lib/clock"
	"github.com/bureau-foundation/tracebridge/lib/config"
	"github.com/bureau-foundation/tracebridge/lib/framecache"
	"github.com/bureau-foundation/tracebridge/lib/layout"
	"github.com/bureau-foundation/tracebridge/lib/metrics"
	"github.com/bureau-foundation/tracebridge/lib/process"
	"github.com/bureau-foundation/tracebridge/lib/recorder"
	"github.com/bureau-foundation/tracebridge/lib/watchdog"
)

// Bridge wires the capture client, the controller client and the
// watchdog together.
type Bridge struct {
	// Config is the validated configuration. Required.
	Config *config.Config

	// Selectors is passed to the controller; nil disables suppression.
	Selectors *layout.Selectors

	// Recorder receives recorded events. Required.
	Recorder *recorder.Recorder

	// Registry collects the bridge metrics. If nil, a new registry is
	// created with the Go runtime and process collectors added.
	Registry *prometheus.Registry

	// MetricsListener overrides Config.Metrics.Listen. The bridge
	// closes it when Run returns.
	MetricsListener net.Listener

	// CaptureDial and ControllerDial override the dialers.
	CaptureDial    capture.DialFunc
	ControllerDial controller.DialFunc

	Clock  clock.Clock
	Logger *slog.Logger
}

// loop is one of the bridge's concurrent units.
type loop struct {
	name string
	run  func(ctx context.Context) error
}

// Run starts every configured loop and blocks until ctx is cancelled or
// a loop fails. It returns nil after a cancellation and the first
// loop's error otherwise.
func (b *Bridge) Run(ctx context.Context) error {
	if b.Config == nil {
		return errors.New("bridge: Config is required")
	}
	if b.Recorder == nil {
		return errors.New("bridge: Recorder is required")
	}
	b.setDefaults()
	cfg := b.Config

	listener := b.MetricsListener
	if listener == nil && cfg.Metrics.Listen != "" {
		var err error
		listener, err = net.Listen("tcp", cfg.Metrics.Listen)
		if err != nil {
			return fmt.Errorf("bridge: listening for metrics on %s: %w", cfg.Metrics.Listen, err)
		}
	}
	if listener != nil {
		defer listener.Close()
	}

	registry := b.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m := metrics.New(registry)

	heartbeat := &watchdog.Heartbeat{}
	restartApp := shellAction(cfg.Recovery.AppRestartCommand, cfg.Recovery.AppRestartTimeout.Std())
	restartDevice := shellAction(cfg.Recovery.DeviceRestartCommand, cfg.Recovery.DeviceRestartTimeout.Std())

	var frames *framecache.Cache
	var loops []loop

	if cfg.Capture.Enabled {
		frames = framecache.New(framecache.Capacity)
		client := &capture.Client{
			Address: cfg.CaptureAddress(),
			Cache:   frames,
			Dial:    b.CaptureDial,
			Clock:   b.Clock,
			Logger:  b.Logger.With("component", "capture"),
			Metrics: m,
		}
		loops = append(loops, loop{"capture", client.Run})
	} else {
		b.Logger.Info("screen capture disabled, events are recorded without screenshots")
	}

	stopKillingAfter, stopKilling := cfg.Controller.StopKilling()
	ctrl := &controller.Controller{
		Address:            cfg.ControllerAddress(),
		Selectors:          b.Selectors,
		RetainCrashHandler: cfg.Controller.RetainCrashHandler,
		StopKilling:        stopKilling,
		StopKillingAfter:   stopKillingAfter,
		Started:            b.Clock.Now(),
		Recorder:           b.Recorder,
		Frames:             frames,
		Heartbeat:          heartbeat,
		RestartApp:         restartApp,
		Dial:               b.ControllerDial,
		Clock:              b.Clock,
		Logger:             b.Logger.With("component", "controller"),
		Metrics:            m,
	}
	loops = append(loops, loop{"controller", ctrl.Run})

	if interval := cfg.Recovery.WatchdogInterval.Std(); interval > 0 {
		dog := &watchdog.Watchdog{
			Interval:      interval,
			Heartbeat:     heartbeat,
			RestartApp:    restartApp,
			RestartDevice: restartDevice,
			Clock:         b.Clock,
			Logger:        b.Logger.With("component", "watchdog"),
			Metrics:       m,
		}
		loops = append(loops, loop{"watchdog", dog.Run})
	}

	if listener != nil {
		logger := b.Logger.With("component", "metrics")
		loops = append(loops, loop{"metrics", func(ctx context.Context) error {
			return metrics.Serve(ctx, listener, registry, logger)
		}})
	}

	return b.runLoops(ctx, loops)
}

// runLoops runs every loop on its own goroutine. The first loop to
// return, with or without an error, stops the others.
func (b *Bridge) runLoops(ctx context.Context, loops []loop) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		waitGroup sync.WaitGroup
		once      sync.Once
		first     error
	)
	for _, l := range loops {
		l := l
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			err := l.run(ctx)
			if err != nil {
				b.Logger.Error("bridge loop failed", "loop", l.name, "error", err)
				once.Do(func() { first = err })
			} else if ctx.Err() == nil {
				b.Logger.Warn("bridge loop exited", "loop", l.name)
			}
			cancel()
		}()
	}

	b.Logger.Info("bridge started", "loops", len(loops))
	waitGroup.Wait()
	b.Logger.Info("bridge stopped")
	return first
}

func (b *Bridge) setDefaults() {
	if b.Clock == nil {
		b.Clock = clock.Real()
	}
	if b.Logger == nil {
		b.Logger = slog.Default()
	}
}

// shellAction returns nil for an empty command.
func shellAction(command string, timeout time.Duration) watchdog.Action {
	if command == "" {
		return nil
	}
	return process.Shell{Command: command, Timeout: timeout}.Run
}
