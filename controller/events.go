// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/tracebridge/lib/framecache"
	"github.com/bureau-foundation/tracebridge/lib/uitree"
)

// RunDebounce delays the "run" scheduled by a screen change.
const RunDebounce = 100 * time.Millisecond

// Event tags following the timestamp.
const (
	tagScreenChange = "[SC]"
	tagBack         = "[BK]"
	tagViewAction   = "[VA]"
	tagDump         = "[{"
)

// handle processes one line of the event stream.
func (c *Controller) handle(ctx context.Context, s *session, line string) {
	if !strings.HasPrefix(line, "[") {
		return
	}
	if c.Selectors != nil && strings.HasPrefix(line, tagDump) {
		c.suppress(ctx, s, line)
		return
	}

	end := strings.IndexByte(line, ']')
	if end <= 1 {
		return
	}
	timestamp, err := strconv.ParseInt(line[1:end], 10, 64)
	if err != nil {
		c.Logger.Warn("controller line has a malformed timestamp", "prefix", truncate(line, 32))
		return
	}
	rest := line[end+1:]

	switch {
	case strings.HasPrefix(rest, tagScreenChange):
		c.screenChanged(s)
	case strings.HasPrefix(rest, tagBack):
		c.Heartbeat.Beat(c.Clock.Now())
		s.pendingView = noAction
		s.pendingType = ActionBack
		c.Logger.Debug("back navigation", "timestamp", timestamp)
	case strings.HasPrefix(rest, tagViewAction):
		c.Heartbeat.Beat(c.Clock.Now())
		c.viewAction(s, timestamp, rest[len(tagViewAction):])
	case strings.HasPrefix(rest, tagDump):
		c.record(s, timestamp, rest)
	default:
		c.Metrics.UnknownReplies.Inc()
		c.Logger.Warn("unknown controller reply", "line", truncate(line, 128))
	}
}

// killingStopped reports whether view suppression has been switched
// off by StopKillingAfter.
func (c *Controller) killingStopped() bool {
	return c.StopKilling && c.Clock.Now().Sub(c.Started) >= c.StopKillingAfter
}

func (c *Controller) screenChanged(s *session) {
	if c.Selectors == nil || s.runScheduled() || c.killingStopped() {
		return
	}
	s.scheduleRun(c.Clock, RunDebounce, func() {
		if err := s.send("run"); err != nil {
			c.Logger.Debug("sending scheduled run failed", "error", err)
		}
	})
}

// viewAction parses "<view>/<type>[/<extra>]" into the pending action.
func (c *Controller) viewAction(s *session, timestamp int64, record string) {
	fields := strings.SplitN(record, "/", 3)
	if len(fields) < 2 {
		c.Logger.Warn("malformed view action", "record", record)
		return
	}
	view, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		c.Logger.Warn("malformed view action", "record", record, "error", err)
		return
	}
	actionType, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		c.Logger.Warn("malformed view action", "record", record, "error", err)
		return
	}
	s.pendingView, s.pendingType = view, actionType

	attrs := []any{"timestamp", timestamp, "view", view, "type", actionType}
	if len(fields) == 3 {
		attrs = append(attrs, "extra", fields[2])
	}
	c.Logger.Debug("view action", attrs...)
}

// suppress applies the selectors to a dump answering "run". A layout
// hash match restarts the app and ends processing of the dump.
func (c *Controller) suppress(ctx context.Context, s *session, line string) {
	c.Logger.Debug("received UI from run")
	if c.killingStopped() {
		return
	}
	windows, err := uitree.ParseWindows([]byte(line))
	if err != nil {
		c.Logger.Warn("unparseable UI dump", "error", err)
		return
	}

	for _, window := range windows {
		decision := c.Selectors.Evaluate(window)
		if decision.Restart {
			c.restartApp(ctx)
			return
		}
		for _, view := range decision.Views {
			c.Logger.Info("disabling view", "view", view)
			if err := s.send(fmt.Sprintf("act dis %d", view)); err != nil {
				c.Logger.Warn("sending disable command failed", "view", view, "error", err)
				return
			}
			c.Metrics.ViewsDisabled.Inc()
		}
	}
}

func (c *Controller) restartApp(ctx context.Context) {
	if c.RestartApp == nil {
		return
	}
	c.Metrics.AppRestarts.Inc()
	c.Logger.Info("restarting the app on a matching layout")
	if err := c.RestartApp(ctx); err != nil {
		c.Logger.Warn("app restart failed", "error", err)
	}
}

// record persists the dump that follows an action.
func (c *Controller) record(s *session, timestamp int64, dump string) {
	if s.pendingType == noAction {
		c.Logger.Info("UI dump without a pending action", "timestamp", timestamp)
		return
	}
	windows, err := uitree.ParseWindows([]byte(dump))
	if err != nil {
		c.Logger.Warn("unparseable UI dump", "timestamp", timestamp, "error", err)
		return
	}
	if len(windows) == 0 {
		c.Logger.Warn("UI dump has no windows", "timestamp", timestamp)
		return
	}

	window := selectWindow(windows, s.pendingView)
	if err := window.Set(uitree.KeyActionType, s.pendingType); err != nil {
		c.Logger.Error("annotating window", "error", err)
		return
	}
	s.pendingType = noAction
	if activity, ok := uitree.String(window, uitree.KeyActivity); ok {
		c.Logger.Debug("recording action", "timestamp", timestamp, "activity", activity)
	}

	encoded, err := window.MarshalJSON()
	if err != nil {
		c.Logger.Error("encoding window", "timestamp", timestamp, "error", err)
		return
	}
	if _, err := c.Recorder.WriteWindow(timestamp, encoded); err != nil {
		c.Logger.Error("writing window", "timestamp", timestamp, "error", err)
		return
	}
	c.Metrics.EventsRecorded.Inc()

	if c.Frames == nil {
		return
	}
	bucket := framecache.Bucket(timestamp)
	frame, ok := c.Frames.LookupFloor(bucket)
	if !ok {
		return
	}
	c.Logger.Debug("attaching screenshot", "timestamp", timestamp,
		"delta_ms", (frame.Bucket-bucket)*framecache.Interval)
	if _, err := c.Recorder.WriteScreen(timestamp, frame.Payload); err != nil {
		c.Logger.Error("writing screenshot", "timestamp", timestamp, "error", err)
		return
	}
	c.Metrics.ScreenshotsWritten.Inc()
}

// selectWindow picks the window to record: the one containing the
// acted-on view, marked as the source, or else the first focused
// window, or else the most recently added one.
func selectWindow(windows []*uitree.Node, view int64) *uitree.Node {
	if view >= 0 {
		for _, window := range windows {
			if window.MarkSource(view) {
				return window
			}
		}
	}
	for _, window := range windows {
		if focused, _ := uitree.Bool(window, uitree.KeyFocus); focused {
			return window
		}
	}
	return windows[0]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
