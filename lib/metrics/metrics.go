// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tracebridge"

// Watchdog recovery actions, the values of the "action" label.
const (
	ActionApp    = "app"
	ActionDevice = "device"
)

// Metrics is the set of bridge collectors.
type Metrics struct {
	FramesReceived    prometheus.Counter
	FramesDiscarded   prometheus.Counter
	CaptureReconnects prometheus.Counter
	CachedFrames      prometheus.Gauge

	ControllerSessions prometheus.Counter
	HandshakeFailures  prometheus.Counter
	EventsRecorded     prometheus.Counter
	ScreenshotsWritten prometheus.Counter
	ViewsDisabled      prometheus.Counter
	AppRestarts        prometheus.Counter
	UnknownReplies     prometheus.Counter

	WatchdogRecoveries *prometheus.CounterVec
}

// New creates the collectors and registers them with registerer. A nil
// registerer leaves them unregistered. Registration panics on a
// duplicate, like prometheus.MustRegister.
func New(registerer prometheus.Registerer) *Metrics {
	counter := func(subsystem, name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}

	m := &Metrics{
		FramesReceived:    counter("capture", "frames_received_total", "Frames read from the capture stream."),
		FramesDiscarded:   counter("capture", "frames_discarded_total", "Frames dropped because their time bucket was already filled."),
		CaptureReconnects: counter("capture", "reconnects_total", "Capture connections lost mid-stream."),
		CachedFrames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "cached_frames",
			Help:      "Frames currently held in the frame cache.",
		}),

		ControllerSessions: counter("controller", "sessions_total", "Controller sessions that completed the handshake."),
		HandshakeFailures:  counter("controller", "handshake_failures_total", "Controller handshakes that timed out or returned malformed data."),
		EventsRecorded:     counter("controller", "events_recorded_total", "UI captures persisted for an action."),
		ScreenshotsWritten: counter("controller", "screenshots_written_total", "Screenshots persisted alongside a UI capture."),
		ViewsDisabled:      counter("controller", "views_disabled_total", "Disable commands sent for views matching a selector."),
		AppRestarts:        counter("controller", "app_restarts_total", "App restarts triggered by a layout hash match."),
		UnknownReplies:     counter("controller", "unknown_replies_total", "Controller lines with an unrecognized tag."),

		WatchdogRecoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watchdog",
			Name:      "recoveries_total",
			Help:      "Recovery commands issued by the watchdog, by action.",
		}, []string{"action"}),
	}

	if registerer != nil {
		registerer.MustRegister(m.collectors()...)
	}
	return m
}

// Discard returns unregistered collectors.
func Discard() *Metrics {
	return New(nil)
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FramesReceived,
		m.FramesDiscarded,
		m.CaptureReconnects,
		m.CachedFrames,
		m.ControllerSessions,
		m.HandshakeFailures,
		m.EventsRecorded,
		m.ScreenshotsWritten,
		m.ViewsDisabled,
		m.AppRestarts,
		m.UnknownReplies,
		m.WatchdogRecoveries,
	}
}
