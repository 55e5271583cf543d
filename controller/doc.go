// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package controller drives the in-app UI controller over its
// line-oriented text protocol and records what it reports.
//
// After connecting, the client sends a fixed handshake (info,
// crash_expose, a11y_event_min_intv, optionally cap_on_main_thread_off
// and run, then trace) and waits a bounded time for a JSON status line
// carrying the session start time "st" and the device clock "ct".
// Everything after that is an event stream:
//
//	[<ts>][VA]<view>/<type>[/<extra>]   a user action on a view
//	[<ts>][BK]                          a back navigation
//	[<ts>][SC]                          the screen changed
//	[<ts>][{...}]                       UI dump following an action
//	[{...}]                             UI dump answering "run"
//
// An action becomes pending until the next timestamped UI dump, which
// is annotated with the action (is_source on the acted-on view,
// ua_type on the window) and written to the recorder together with the
// closest earlier screen-capture frame.
//
// When view selectors are configured, screen changes schedule a
// debounced "run"; the untimestamped dump it produces is matched
// against the selectors, and matching views are disabled with
// "act dis <view>" or, for a matching layout hash, the app is
// restarted.
//
// Connection loss of any kind leads to a reconnect; only exhausting
// the connect attempts ends [Controller.Run] with an error.
package controller
