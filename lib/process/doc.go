// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process covers the two places tracebridge touches the
// process boundary.
//
// Exit handling: [Fatal] reports an error to stderr and exits when the
// structured logger may not exist yet, and [ExitError] lets run()
// request a specific exit code (100 for a missing argument, matching
// the scripts that supervise the bridge).
//
// Recovery commands: [Shell] runs an operator-supplied command line
// (app or device restart) through sh -c in its own process group, with
// a hard timeout that kills the whole group. Failures are returned for
// logging; callers keep running.
package process
