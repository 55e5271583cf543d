// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog restarts a stalled exploration.
//
// The controller records every user action on a shared [Heartbeat].
// A [Watchdog] polls it at a fixed interval; each poll that finds no
// action within the last interval counts as a stall. Stalls trigger an
// app restart, and every third consecutive stall escalates to a device
// restart instead when one is configured. A poll that finds recent
// activity resets the count.
package watchdog
