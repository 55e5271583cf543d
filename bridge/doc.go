// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge runs the tracebridge loops as one unit.
//
// A [Bridge] owns the state the loops share: the frame cache written by
// the capture client and read by the controller, and the heartbeat the
// controller beats and the watchdog polls. Run starts the capture
// client (unless capture is disabled), the controller client, the
// watchdog (when its interval is positive) and the metrics endpoint
// (when a listen address is configured). The loops run until the
// context is cancelled or one of them fails fatally; either way every
// loop is stopped before Run returns, and the first fatal error is
// returned.
//
// Recovery commands from the configuration become [watchdog.Action]
// values backed by [process.Shell]. The app restart is shared between
// the watchdog and the controller's layout hash selectors.
package bridge
