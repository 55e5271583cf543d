// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the time source shared by the bridge loops.
//
// The capture and controller loops space their reconnect attempts with
// it, the controller schedules its debounced capture request with
// AfterFunc, and the watchdog polls with NewTicker. Production code
// passes Real(); tests pass Fake() and move time forward explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go dog.Run(ctx)
//	c.WaitForTimers(1)      // the ticker is registered
//	c.Advance(time.Second)  // exactly one poll happens
//
// Socket deadlines are not routed through this package: the kernel
// compares them against wall-clock time.
package clock
