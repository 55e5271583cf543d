// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/tracebridge/lib/clock"
	"github.com/bureau-foundation/tracebridge/lib/metrics"
)

// DeviceRestartStalls is the number of consecutive stalled polls after
// which the device restart replaces the app restart.
const DeviceRestartStalls = 3

// Heartbeat is the time of the most recent user action. It is safe for
// concurrent use; the zero value reads as the Unix epoch.
type Heartbeat struct {
	millis atomic.Int64
}

// Beat records an action at t.
func (h *Heartbeat) Beat(t time.Time) {
	h.millis.Store(t.UnixMilli())
}

// Last returns the time of the most recent action.
func (h *Heartbeat) Last() time.Time {
	return time.UnixMilli(h.millis.Load())
}

// Action is a recovery command.
type Action func(ctx context.Context) error

// Watchdog polls a Heartbeat and runs recovery actions while it is
// stale.
type Watchdog struct {
	// Interval is both the poll period and the idle time that counts
	// as a stall. It must be positive.
	Interval time.Duration

	Heartbeat *Heartbeat

	// RestartApp and RestartDevice may be nil.
	RestartApp    Action
	RestartDevice Action

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	stalls int
}

// Run beats the heartbeat once, then polls until ctx is cancelled.
// Recovery actions run on the polling goroutine; failures are logged.
func (w *Watchdog) Run(ctx context.Context) error {
	w.setDefaults()
	w.Heartbeat.Beat(w.Clock.Now())

	ticker := w.Clock.NewTicker(w.Interval)
	defer ticker.Stop()

	w.Logger.Info("watchdog started", "interval", w.Interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.check(ctx, w.Clock.Now())
		}
	}
}

func (w *Watchdog) setDefaults() {
	if w.Clock == nil {
		w.Clock = clock.Real()
	}
	if w.Logger == nil {
		w.Logger = slog.Default()
	}
	if w.Metrics == nil {
		w.Metrics = metrics.Discard()
	}
	if w.Heartbeat == nil {
		w.Heartbeat = &Heartbeat{}
	}
}

// check runs one poll at now.
func (w *Watchdog) check(ctx context.Context, now time.Time) {
	idle := now.Sub(w.Heartbeat.Last())
	if idle < w.Interval {
		w.stalls = 0
		return
	}

	w.stalls++
	w.Logger.Warn("no user action recorded", "idle", idle, "consecutive_stalls", w.stalls)
	if w.RestartDevice != nil && w.stalls >= DeviceRestartStalls {
		w.stalls = 0
		w.recover(ctx, metrics.ActionDevice, w.RestartDevice)
		return
	}
	if w.RestartApp != nil {
		w.recover(ctx, metrics.ActionApp, w.RestartApp)
	}
}

func (w *Watchdog) recover(ctx context.Context, name string, action Action) {
	w.Metrics.WatchdogRecoveries.WithLabelValues(name).Inc()
	w.Logger.Info("watchdog restarting", "target", name)
	if err := action(ctx); err != nil {
		w.Logger.Warn("watchdog recovery failed", "target", name, "error", err)
	}
}
