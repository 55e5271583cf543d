// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] bound every wait on a channel
// so that a broken component fails its test instead of hanging it.
// They are the only place test code waits on the wall clock.
//
// [Listen] and [Accept] stand in for the device-side capture and
// controller services with loopback TCP listeners.
//
// All helpers call t.Fatalf on failure.
package testutil
